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

package modelconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const miniLMConfig = `{
  "model_type": "bert",
  "num_attention_heads": 12,
  "hidden_size": 384,
  "num_hidden_layers": 6,
  "vocab_size": 30522
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(miniLMConfig), 0644))

	config, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "bert", config.ModelType)
	assert.Equal(t, 12, config.NumAttentionHeads)
	assert.Equal(t, 384, config.HiddenSize)
	assert.Equal(t, 6, config.NumHiddenLayers)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read model config")
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("not json"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse model config")
}

func TestGeometry(t *testing.T) {
	config := &Config{NumAttentionHeads: 12, HiddenSize: 384}

	heads, hidden := config.Geometry(0, 0)
	assert.Equal(t, 12, heads)
	assert.Equal(t, 384, hidden)

	// Explicit values win over the config.
	heads, hidden = config.Geometry(16, 512)
	assert.Equal(t, 16, heads)
	assert.Equal(t, 512, hidden)
}
