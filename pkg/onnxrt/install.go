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

package onnxrt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/internal/transfer"
	"github.com/SocketDev/socket-btm/pkg/archiver"
)

// Install fetches the ONNX Runtime release for this platform, unpacks it
// under storageDir and places the shared library at the storage root where
// ResolveLibrary finds it. Returns the library path.
func Install(ctx context.Context, storageDir string) (string, error) {
	platform := runtime.GOOS + "-" + runtime.GOARCH
	url, ok := releaseURLs[platform]
	if !ok {
		return "", fmt.Errorf("no published onnxruntime %s release for %s, install it manually and set %s", Version, platform, EnvLibraryPath)
	}

	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	archivePath := filepath.Join(storageDir, filepath.Base(url))
	fetcher := transfer.New()
	if err := fetcher.FetchAll(ctx, "Fetching onnxruntime", []transfer.Request{{URL: url, Dest: archivePath}}); err != nil {
		return "", err
	}
	if err := transfer.Promote(archivePath); err != nil {
		return "", err
	}
	defer os.Remove(archivePath)

	archive, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open release archive: %w", err)
	}
	defer archive.Close()

	extractDir := filepath.Join(storageDir, "onnxruntime-"+Version)
	if err := archiver.Untar(archive, extractDir); err != nil {
		return "", fmt.Errorf("failed to extract release archive: %w", err)
	}

	libPath := filepath.Join(storageDir, LibName())
	if err := placeLibrary(extractDir, libPath); err != nil {
		return "", err
	}

	logrus.Infof("onnxrt: installed runtime [version: %s, lib: %s]", Version, libPath)
	return libPath, nil
}

// placeLibrary locates the shared library inside the extracted release
// tree and copies it to libPath. Releases ship versioned names such as
// libonnxruntime.so.1.17.1, the longest match is the real file rather
// than a dropped symlink.
func placeLibrary(extractDir, libPath string) error {
	var found string
	err := filepath.Walk(extractDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		// Accept libonnxruntime.so.1.17.1 style names but not sibling
		// libraries such as libonnxruntime_providers_shared.so.
		name := info.Name()
		rest, ok := strings.CutPrefix(name, "libonnxruntime")
		if !ok {
			rest, ok = strings.CutPrefix(name, "onnxruntime")
		}
		if !ok || !strings.HasPrefix(rest, ".") {
			return nil
		}
		if !strings.Contains(name, ".so") && !strings.HasSuffix(name, ".dylib") && !strings.HasSuffix(name, ".dll") {
			return nil
		}

		if found == "" || len(name) > len(filepath.Base(found)) {
			found = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan extracted release: %w", err)
	}

	if found == "" {
		return fmt.Errorf("no shared library in extracted release under %s", extractDir)
	}

	return copyFile(found, libPath)
}

// copyFile copies src to dst, marking it executable.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return out.Close()
}
