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

import (
	"fmt"
	"strings"

	"github.com/SocketDev/socket-btm/internal/transfer"
	"github.com/SocketDev/socket-btm/pkg/modelprovider/huggingface"
	"github.com/SocketDev/socket-btm/pkg/modelprovider/modelscope"
	"github.com/SocketDev/socket-btm/pkg/modelprovider/s3"
)

// Registry manages all available model providers and provides
// functionality to select the appropriate provider for a given URL
type Registry struct {
	providers []Provider
}

// NewRegistry creates a new provider registry with all available providers.
// HTTP-backed providers share the given fetcher.
func NewRegistry(fetcher *transfer.Fetcher) *Registry {
	return &Registry{
		providers: []Provider{
			huggingface.New(fetcher),
			modelscope.New(fetcher),
			s3.New(),
		},
	}
}

// GetProvider returns the appropriate provider for the given model URL.
// It iterates through all registered providers and returns the first one
// whose URL patterns match. Short owner/repo identifiers match no pattern
// and default to the Hugging Face provider.
func (r *Registry) GetProvider(modelURL string) (Provider, error) {
	for _, p := range r.providers {
		if p.SupportsURL(modelURL) {
			return p, nil
		}
	}

	if isShortRepoID(modelURL) {
		return r.GetProviderByName("huggingface")
	}

	return nil, fmt.Errorf("no provider found for URL: %s", modelURL)
}

// GetProviderByName returns a specific provider by its name
// This is useful when you want to explicitly select a provider
func (r *Registry) GetProviderByName(name string) (Provider, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("provider not found: %s", name)
}

// SelectProvider picks a provider for the model URL. A non-empty
// providerName overrides URL-based detection.
func (r *Registry) SelectProvider(modelURL, providerName string) (Provider, error) {
	if providerName != "" {
		return r.GetProviderByName(providerName)
	}
	return r.GetProvider(modelURL)
}

// ListProviders returns the names of all registered providers
func (r *Registry) ListProviders() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// isShortRepoID reports whether the URL is a bare owner/repo identifier
// with no scheme, such as "sentence-transformers/all-MiniLM-L6-v2".
func isShortRepoID(modelURL string) bool {
	modelURL = strings.TrimSpace(modelURL)
	if modelURL == "" || strings.Contains(modelURL, "://") {
		return false
	}

	parts := strings.Split(modelURL, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
