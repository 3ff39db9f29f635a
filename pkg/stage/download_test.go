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

package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocketDev/socket-btm/internal/transfer"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// fakeSource is a scriptable model hub. Fetch writes staged files the way
// the transfer fetcher does, so promotion is exercised end to end.
type fakeSource struct {
	name    string
	files   []string
	listErr error
	authErr error

	fetchErr error
	fetched  [][]string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ListFiles(ctx context.Context, modelURL string) ([]string, error) {
	return f.files, f.listErr
}

func (f *fakeSource) Fetch(ctx context.Context, modelURL string, names []string, destDir string) error {
	if f.fetchErr != nil {
		return f.fetchErr
	}
	f.fetched = append(f.fetched, names)
	for _, name := range names {
		staged := filepath.Join(destDir, name) + transfer.PartialSuffix
		if err := os.WriteFile(staged, []byte("content of "+name), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) CheckAuth(ctx context.Context) error { return f.authErr }

func selectorFor(source Source, err error) SourceSelector {
	return func(modelURL, sourceName string) (Source, error) {
		return source, err
	}
}

func TestDownloadRun(t *testing.T) {
	source := &fakeSource{
		name: "huggingface",
		files: []string{
			"model.safetensors",
			"config.json",
			"tokenizer.json",
			"vocab.txt",
			"README.md",
			".gitattributes",
			"onnx/model.onnx",
		},
	}

	cacheDir := filepath.Join(t.TempDir(), "cache")
	stage := NewDownload(selectorFor(source, nil), "sentence-transformers/all-MiniLM-L6-v2", "", cacheDir)

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), stage, status.NewReporter(&buf)))

	// Grouped fetches: weights and config first, tokenizer material second.
	// The readme, dotfile and exported graph never pass the filter.
	require.Len(t, source.fetched, 2)
	assert.Equal(t, []string{"config.json", "model.safetensors"}, source.fetched[0])
	assert.Equal(t, []string{"tokenizer.json", "vocab.txt"}, source.fetched[1])

	records := decodeRecords(t, &buf)
	require.Len(t, records, 5)
	assert.Equal(t, map[string]any{"status": "downloading_model"}, records[0])
	assert.Equal(t, map[string]any{"status": "downloading_tokenizer"}, records[1])
	assert.Equal(t, map[string]any{"status": "saving_model"}, records[2])
	assert.Equal(t, map[string]any{"status": "saving_tokenizer"}, records[3])
	assert.Equal(t, map[string]any{"status": "complete", "cache_dir": cacheDir}, records[4])

	for _, name := range []string{"model.safetensors", "config.json", "tokenizer.json", "vocab.txt"} {
		assert.FileExists(t, filepath.Join(cacheDir, name))
		assert.NoFileExists(t, filepath.Join(cacheDir, name)+transfer.PartialSuffix, "staged copy of %s should be promoted away", name)
	}
}

func TestDownloadNoModelFiles(t *testing.T) {
	source := &fakeSource{name: "huggingface", files: []string{"tokenizer.json", "vocab.txt"}}
	cacheDir := filepath.Join(t.TempDir(), "cache")
	stage := NewDownload(selectorFor(source, nil), "owner/tokenizer-only", "", cacheDir)

	var buf bytes.Buffer
	err := Run(context.Background(), stage, status.NewReporter(&buf))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindExecutionFailure, kind)
	assert.Empty(t, source.fetched, "nothing should be fetched without model files")

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"error": "repository owner/tokenizer-only offers no model files"}, records[0])
}

func TestDownloadSelectorFailure(t *testing.T) {
	selectErr := fmt.Errorf("no provider found for URL: ftp://example.com/model")
	stage := NewDownload(selectorFor(nil, selectErr), "ftp://example.com/model", "", filepath.Join(t.TempDir(), "cache"))

	var buf bytes.Buffer
	err := Run(context.Background(), stage, status.NewReporter(&buf))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindDependencyMissing, kind)

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"error": selectErr.Error()}, records[0])
}

func TestDownloadAuthFailureOnlyWarns(t *testing.T) {
	source := &fakeSource{
		name:    "huggingface",
		files:   []string{"model.safetensors", "config.json"},
		authErr: errors.New("not authenticated with Hugging Face"),
	}
	cacheDir := filepath.Join(t.TempDir(), "cache")
	stage := NewDownload(selectorFor(source, nil), "owner/repo", "", cacheDir)

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), stage, status.NewReporter(&buf)))

	records := decodeRecords(t, &buf)
	assert.Equal(t, "complete", records[len(records)-1]["status"])
}

func TestDownloadListFailure(t *testing.T) {
	source := &fakeSource{name: "huggingface", listErr: errors.New("failed to resolve model owner/repo, status code: 504")}
	stage := NewDownload(selectorFor(source, nil), "owner/repo", "", filepath.Join(t.TempDir(), "cache"))

	var buf bytes.Buffer
	err := Run(context.Background(), stage, status.NewReporter(&buf))
	require.Error(t, err)

	records := decodeRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"error": "failed to resolve model owner/repo, status code: 504"}, records[0])
}
