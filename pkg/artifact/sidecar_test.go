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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateSidecars(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	// A subset of the manifest, plus a file outside it.
	present := map[string]string{
		"config.json":    `{"hidden_size": 384}`,
		"tokenizer.json": `{"version": "1.0"}`,
		"vocab.txt":      "[PAD]\n[UNK]\n[CLS]\n[SEP]\n",
	}
	for name, content := range present {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "model.onnx"), []byte("graph"), 0644))

	require.NoError(t, PropagateSidecars(srcDir, dstDir))

	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Len(t, entries, len(present))

	// Copies are byte identical.
	for name, content := range present {
		data, err := os.ReadFile(filepath.Join(dstDir, name))
		require.NoError(t, err)
		assert.Equal(t, content, string(data), "content mismatch for %s", name)
	}

	// The weights file is not part of the manifest.
	_, err = os.Stat(filepath.Join(dstDir, "model.onnx"))
	assert.True(t, os.IsNotExist(err))
}

func TestPropagateSidecarsEmptySource(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	// No manifest file present at all, still a success.
	require.NoError(t, PropagateSidecars(srcDir, dstDir))

	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPropagateSidecarsIdempotent(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tokenizer_config.json"), []byte(`{"do_lower_case": true}`), 0644))

	require.NoError(t, PropagateSidecars(srcDir, dstDir))
	require.NoError(t, PropagateSidecars(srcDir, dstDir))

	data, err := os.ReadFile(filepath.Join(dstDir, "tokenizer_config.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"do_lower_case": true}`, string(data))
}

func TestPropagateSidecarsOverwritesStale(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "special_tokens_map.json"), []byte(`{"cls_token": "[CLS]"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "special_tokens_map.json"), []byte("stale and longer than the source"), 0644))

	require.NoError(t, PropagateSidecars(srcDir, dstDir))

	data, err := os.ReadFile(filepath.Join(dstDir, "special_tokens_map.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"cls_token": "[CLS]"}`, string(data))
}
