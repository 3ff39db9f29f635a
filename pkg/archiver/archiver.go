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

// Package archiver extracts release archives, such as the ONNX Runtime
// distribution tarballs unpacked by the setup installer.
package archiver

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Untar extracts the contents of a tar archive from the provided reader
// to the specified destination path. Gzip-compressed streams are detected
// and decompressed transparently.
func Untar(reader io.Reader, destPath string) error {
	decompressed, err := maybeGzip(reader)
	if err != nil {
		return err
	}

	tarReader := tar.NewReader(decompressed)

	// Ensure destination directory exists.
	if err := os.MkdirAll(destPath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading tar: %w", err)
		}

		// Sanitize file paths to prevent directory traversal.
		cleanPath := filepath.Clean(header.Name)
		if strings.Contains(cleanPath, "..") || strings.HasPrefix(cleanPath, "/") || strings.HasPrefix(cleanPath, ":\\") {
			return fmt.Errorf("tar file contains invalid path: %s", cleanPath)
		}

		targetPath := filepath.Join(destPath, cleanPath)

		// Create directories for all path components.
		dirPath := filepath.Dir(targetPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", targetPath, err)
			}
			// Set correct permissions for the directory.
			if err := os.Chmod(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to set directory permissions %s: %w", targetPath, err)
			}
			// Set modification time for the directory.
			if err := os.Chtimes(targetPath, header.ModTime, header.ModTime); err != nil {
				return fmt.Errorf("failed to set directory mtime %s: %w", targetPath, err)
			}

		case tar.TypeReg:
			file, err := os.OpenFile(
				targetPath,
				os.O_CREATE|os.O_RDWR|os.O_TRUNC,
				os.FileMode(header.Mode),
			)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", targetPath, err)
			}

			if _, err := io.Copy(file, tarReader); err != nil {
				file.Close()
				return fmt.Errorf("failed to write to file %s: %w", targetPath, err)
			}
			file.Close()

			// Set correct permissions for the file.
			if err := os.Chmod(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to set file permissions %s: %w", targetPath, err)
			}
			// Set modification time for the file.
			if err := os.Chtimes(targetPath, header.ModTime, header.ModTime); err != nil {
				return fmt.Errorf("failed to set file mtime %s: %w", targetPath, err)
			}

		default:
			// Skip other types, including the version symlinks release
			// tarballs carry.
			continue
		}
	}

	return nil
}

// maybeGzip wraps the reader with a gzip decoder when the stream starts
// with the gzip magic bytes.
func maybeGzip(reader io.Reader) (io.Reader, error) {
	br := bufio.NewReader(reader)

	magic, err := br.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gz, nil
	}

	return br, nil
}
