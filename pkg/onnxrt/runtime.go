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

// Package onnxrt hosts the native ONNX Runtime integration behind the
// verification stage: shared library discovery, the release installer,
// the WordPiece tokenizer, and the inference session. Inference itself is
// compiled in with the onnx build tag, everything else builds everywhere.
package onnxrt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// EnvLibraryPath overrides shared library discovery.
	EnvLibraryPath = "BTM_ONNXRUNTIME_LIB"

	// Version is the ONNX Runtime release the installer fetches.
	Version = "1.17.1"
)

// releaseURLs maps platform to the published release tarball.
var releaseURLs = map[string]string{
	"linux-amd64":  "https://github.com/microsoft/onnxruntime/releases/download/v1.17.1/onnxruntime-linux-x64-1.17.1.tgz",
	"linux-arm64":  "https://github.com/microsoft/onnxruntime/releases/download/v1.17.1/onnxruntime-linux-aarch64-1.17.1.tgz",
	"darwin-amd64": "https://github.com/microsoft/onnxruntime/releases/download/v1.17.1/onnxruntime-osx-x86_64-1.17.1.tgz",
	"darwin-arm64": "https://github.com/microsoft/onnxruntime/releases/download/v1.17.1/onnxruntime-osx-arm64-1.17.1.tgz",
}

// Result holds one forward pass's raw last_hidden_state activation.
type Result struct {
	// Data is the flattened activation in row-major order.
	Data []float32

	// Shape is [batch, sequence, hidden].
	Shape []int64
}

// LibName returns the shared library filename for the current platform.
func LibName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// ResolveLibrary locates the ONNX Runtime shared library: the
// EnvLibraryPath override first, then the storage directory, then common
// system locations.
func ResolveLibrary(storageDir string) (string, error) {
	if p := os.Getenv(EnvLibraryPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s points to a missing library: %w", EnvLibraryPath, err)
		}
		return p, nil
	}

	libName := LibName()
	candidates := []string{
		filepath.Join(storageDir, libName),
		"/usr/local/lib/" + libName,
		"/usr/lib/" + libName,
		"/opt/homebrew/lib/" + libName,
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("onnxruntime shared library not found, run setup or set %s", EnvLibraryPath)
}
