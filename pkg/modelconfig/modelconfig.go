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

// Package modelconfig reads the transformer configuration sidecar to
// recover the geometry the graph optimizer needs.
package modelconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SocketDev/socket-btm/pkg/artifact"
)

// Config is the subset of a transformer config.json the pipeline reads.
type Config struct {
	// ModelType is the architecture family, "bert" for MiniLM.
	ModelType string `json:"model_type"`

	// NumAttentionHeads is the attention head count per layer.
	NumAttentionHeads int `json:"num_attention_heads"`

	// HiddenSize is the width of the hidden representation.
	HiddenSize int `json:"hidden_size"`

	// NumHiddenLayers is the encoder layer count.
	NumHiddenLayers int `json:"num_hidden_layers"`
}

// Load reads config.json from dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, artifact.ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config %s: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}

	return &config, nil
}

// Geometry returns the head count and hidden size, falling back to the
// values from the config for any argument left at zero.
func (c *Config) Geometry(numHeads, hiddenSize int) (int, int) {
	if numHeads == 0 {
		numHeads = c.NumAttentionHeads
	}
	if hiddenSize == 0 {
		hiddenSize = c.HiddenSize
	}

	return numHeads, hiddenSize
}
