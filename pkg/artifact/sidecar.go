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

package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/internal/digest"
)

// SidecarManifest lists the tokenizer and configuration files that must
// travel with the weights through every transformation. The list is fixed;
// stages never derive it from directory contents.
var SidecarManifest = []string{
	"config.json",
	"tokenizer.json",
	"tokenizer_config.json",
	"special_tokens_map.json",
	"vocab.txt",
}

// PropagateSidecars copies each manifest file that exists in srcDir into
// dstDir byte for byte. Absent manifest files are skipped silently, and
// files outside the manifest are never copied. Copying is idempotent, a
// second run overwrites the same bytes.
func PropagateSidecars(srcDir, dstDir string) error {
	for _, name := range SidecarManifest {
		srcPath := filepath.Join(srcDir, name)
		info, err := os.Stat(srcPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat sidecar %s: %w", srcPath, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		dstPath := filepath.Join(dstDir, name)
		if err := copyFile(srcPath, dstPath, info.Mode()); err != nil {
			return fmt.Errorf("failed to copy sidecar %s: %w", name, err)
		}

		if dgst, size, err := digest.FromFile(dstPath); err == nil {
			logrus.Infof("artifact: propagated sidecar %s [digest: %s, size: %d]", name, dgst, size)
		}
	}

	return nil
}

// copyFile copies src to dst, truncating any existing file.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
