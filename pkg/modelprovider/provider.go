/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package modelprovider

import "context"

// Provider defines the interface that all model providers must implement.
// A provider lists and fetches the files of a model repository hosted on a
// specific hub (e.g., Hugging Face, ModelScope, an S3 mirror).
type Provider interface {
	// Name returns the human-readable name of the provider
	// Example: "huggingface", "modelscope", "s3"
	Name() string

	// SupportsURL checks if this provider can handle the given model URL
	// This enables automatic provider detection based on URL patterns
	SupportsURL(url string) bool

	// ListFiles resolves the model URL and returns the names of the files
	// the repository offers, relative to the repository root.
	ListFiles(ctx context.Context, modelURL string) ([]string, error)

	// Fetch downloads the named repository files into destDir. Each file is
	// staged next to its final path with the transfer.PartialSuffix; the
	// caller promotes staged files once the batch has landed.
	Fetch(ctx context.Context, modelURL string, names []string, destDir string) error

	// CheckAuth verifies that credentials for the provider are available.
	// Providers serving public repositories can fetch without credentials,
	// so a CheckAuth failure is advisory rather than fatal.
	CheckAuth(ctx context.Context) error
}
