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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLibName(t *testing.T) {
	name := LibName()
	if name == "" {
		t.Fatal("LibName() returned empty name")
	}
	if !strings.Contains(name, "onnxruntime") {
		t.Errorf("LibName() = %q, want onnxruntime library name", name)
	}
}

func TestResolveLibraryEnvOverride(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "custom-ort.so")
	if err := os.WriteFile(libPath, []byte("lib"), 0755); err != nil {
		t.Fatalf("write library error: %v", err)
	}
	t.Setenv(EnvLibraryPath, libPath)

	got, err := ResolveLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("ResolveLibrary() error = %v", err)
	}
	if got != libPath {
		t.Errorf("ResolveLibrary() = %q, want %q", got, libPath)
	}
}

func TestResolveLibraryEnvOverrideMissing(t *testing.T) {
	t.Setenv(EnvLibraryPath, filepath.Join(t.TempDir(), "nope.so"))

	if _, err := ResolveLibrary(t.TempDir()); err == nil {
		t.Fatal("ResolveLibrary() expected error for missing override")
	}
}

func TestResolveLibraryStorageDir(t *testing.T) {
	t.Setenv(EnvLibraryPath, "")

	dir := t.TempDir()
	libPath := filepath.Join(dir, LibName())
	if err := os.WriteFile(libPath, []byte("lib"), 0755); err != nil {
		t.Fatalf("write library error: %v", err)
	}

	got, err := ResolveLibrary(dir)
	if err != nil {
		t.Fatalf("ResolveLibrary() error = %v", err)
	}
	if got != libPath {
		t.Errorf("ResolveLibrary() = %q, want %q", got, libPath)
	}
}

func TestResolveLibraryNotFound(t *testing.T) {
	t.Setenv(EnvLibraryPath, "")

	for _, dir := range []string{"/usr/local/lib", "/usr/lib", "/opt/homebrew/lib"} {
		if _, err := os.Stat(filepath.Join(dir, LibName())); err == nil {
			t.Skipf("system onnxruntime present in %s", dir)
		}
	}

	_, err := ResolveLibrary(t.TempDir())
	if err == nil {
		t.Fatal("ResolveLibrary() expected error when no library present")
	}
	if !strings.Contains(err.Error(), EnvLibraryPath) {
		t.Errorf("ResolveLibrary() error = %v, want mention of %s", err, EnvLibraryPath)
	}
}

func TestPlaceLibrary(t *testing.T) {
	extractDir := t.TempDir()
	libDir := filepath.Join(extractDir, "onnxruntime-linux-x64-"+Version, "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	// The versioned name is the real file, the bare name stands in for a
	// symlink the extractor dropped.
	files := map[string]string{
		"libonnxruntime.so." + Version:       "real library",
		"libonnxruntime.so":                  "",
		"libonnxruntime_providers_shared.so": "provider library",
		"onnxruntime_c_api.h":                "header",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(libDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s error: %v", name, err)
		}
	}

	dst := filepath.Join(t.TempDir(), LibName())
	if err := placeLibrary(extractDir, dst); err != nil {
		t.Fatalf("placeLibrary() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read placed library error: %v", err)
	}
	if string(data) != "real library" {
		t.Errorf("placed library content = %q, want the versioned file", data)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat placed library error: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("placed library mode = %v, want executable", info.Mode())
	}
}

func TestPlaceLibraryNoLibrary(t *testing.T) {
	extractDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(extractDir, "README"), []byte("docs"), 0644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	if err := placeLibrary(extractDir, filepath.Join(t.TempDir(), LibName())); err == nil {
		t.Fatal("placeLibrary() expected error for tree without a library")
	}
}
