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

// Package artifact names the files the conversion pipeline hands between
// stages and classifies model repository files by kind.
package artifact

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
)

const (
	// ConfigFile is the transformer configuration consumed by the export
	// stage and propagated alongside the weights.
	ConfigFile = "config.json"

	// WeightsFile is the ONNX graph produced by the export stage and
	// required as input by the quantize stage.
	WeightsFile = "model.onnx"

	// QuantizedFile is the weights file produced by the quantize stage.
	QuantizedFile = "model_quantized.onnx"
)

// Kind classifies an artifact file.
type Kind string

const (
	// KindWeights is the model graph or parameter tensors.
	KindWeights Kind = "weights"

	// KindTokenizer is the tokenizer definition and vocabulary.
	KindTokenizer Kind = "tokenizer"

	// KindConfig is model configuration and any other metadata file.
	KindConfig Kind = "config"
)

var (
	// weightsFilePatterns matches parameter tensor and graph files.
	weightsFilePatterns = []string{
		"*.safetensors",
		"*.bin",
		"*.pt",
		"*.pth",
		"*.ckpt",
		"*.onnx",
	}

	// tokenizerFilePatterns matches tokenizer definitions and vocabularies.
	tokenizerFilePatterns = []string{
		"tokenizer.json",
		"tokenizer_config.json",
		"special_tokens_map.json",
		"added_tokens.json",
		"vocab.txt",
		"merges.txt",
		"*.model",
	}
)

// Classify returns the kind of a repository file by its name. Files that
// are neither weights nor tokenizer material count as configuration.
func Classify(name string) Kind {
	base := filepath.Base(name)
	switch {
	case isFileType(base, tokenizerFilePatterns):
		return KindTokenizer
	case isFileType(base, weightsFilePatterns):
		return KindWeights
	default:
		return KindConfig
	}
}

// isFileType checks if the filename matches any of the given patterns,
// case-insensitively.
func isFileType(filename string, patterns []string) bool {
	lower := strings.ToLower(filename)
	for _, pattern := range patterns {
		matched, err := filepath.Match(strings.ToLower(pattern), lower)
		if err == nil && matched {
			return true
		}
	}

	return false
}

// Set partitions repository files by kind, deduplicating names. The
// download stage fetches and promotes each partition as a unit.
type Set struct {
	weights   *hashset.Set
	tokenizer *hashset.Set
	config    *hashset.Set
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{
		weights:   hashset.New(),
		tokenizer: hashset.New(),
		config:    hashset.New(),
	}
}

// Add classifies the file and records it in the matching partition.
func (s *Set) Add(name string) {
	switch Classify(name) {
	case KindWeights:
		s.weights.Add(name)
	case KindTokenizer:
		s.tokenizer.Add(name)
	default:
		s.config.Add(name)
	}
}

// Weights returns the weight files in lexical order.
func (s *Set) Weights() []string {
	return sorted(s.weights)
}

// Tokenizer returns the tokenizer files in lexical order.
func (s *Set) Tokenizer() []string {
	return sorted(s.tokenizer)
}

// Config returns the configuration files in lexical order.
func (s *Set) Config() []string {
	return sorted(s.config)
}

// Model returns the weight and configuration files in lexical order. They
// travel together through the model half of the download stage.
func (s *Set) Model() []string {
	values := append(sorted(s.weights), sorted(s.config)...)
	sort.Strings(values)
	return values
}

// Len returns the total number of files in the set.
func (s *Set) Len() int {
	return s.weights.Size() + s.tokenizer.Size() + s.config.Size()
}

func sorted(set *hashset.Set) []string {
	var values []string
	for _, raw := range set.Values() {
		value, ok := raw.(string)
		if !ok {
			continue
		}

		values = append(values, value)
	}

	sort.Strings(values)
	return values
}
