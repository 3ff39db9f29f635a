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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testcases := []struct {
		name     string
		expected Kind
	}{
		{"model.safetensors", KindWeights},
		{"pytorch_model.bin", KindWeights},
		{"model.onnx", KindWeights},
		{"onnx/model.onnx", KindWeights},
		{"tokenizer.json", KindTokenizer},
		{"tokenizer_config.json", KindTokenizer},
		{"special_tokens_map.json", KindTokenizer},
		{"vocab.txt", KindTokenizer},
		{"merges.txt", KindTokenizer},
		{"sentencepiece.bpe.model", KindTokenizer},
		{"config.json", KindConfig},
		{"generation_config.json", KindConfig},
		{"README.md", KindConfig},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.name))
		})
	}
}

func TestSetPartition(t *testing.T) {
	s := NewSet()
	for _, name := range []string{
		"model.safetensors",
		"config.json",
		"tokenizer.json",
		"vocab.txt",
		"tokenizer.json", // duplicate
	} {
		s.Add(name)
	}

	assert.Equal(t, []string{"model.safetensors"}, s.Weights())
	assert.Equal(t, []string{"tokenizer.json", "vocab.txt"}, s.Tokenizer())
	assert.Equal(t, []string{"config.json"}, s.Config())
	assert.Equal(t, []string{"config.json", "model.safetensors"}, s.Model())
	assert.Equal(t, 4, s.Len())
}
