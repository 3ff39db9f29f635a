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

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// DefaultIncludePatterns matches the repository files the conversion
	// pipeline consumes.
	DefaultIncludePatterns = []string{
		"*.json",
		"*.txt",
		"*.model",
		"*.safetensors",
		"*.bin",
	}

	// DefaultExcludePatterns drops alternate-framework weights and exported
	// graphs commonly mirrored in hub repositories. The pipeline exports
	// its own ONNX graph from the source weights.
	DefaultExcludePatterns = []string{
		"*.h5",
		"*.msgpack",
		"*.ot",
		"*.onnx",
		"onnx/**",
		"coreml/**",
		"openvino/**",
		".*",
	}
)

// PathFilter selects repository files by include and exclude glob patterns.
// Excludes win over includes, and an empty include list admits everything
// not excluded. Patterns use doublestar syntax, so "onnx/**" prunes a whole
// subtree.
type PathFilter struct {
	includes []string
	excludes []string
}

// NewPathFilter validates the patterns and creates a filter.
func NewPathFilter(includes, excludes []string) (*PathFilter, error) {
	for _, pattern := range includes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %q", pattern)
		}
	}
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	return &PathFilter{includes: includes, excludes: excludes}, nil
}

// DefaultPathFilter creates the filter used when no patterns are given.
func DefaultPathFilter() *PathFilter {
	filter, err := NewPathFilter(DefaultIncludePatterns, DefaultExcludePatterns)
	if err != nil {
		// The default patterns are constants validated by tests.
		panic(err)
	}

	return filter
}

// Match reports whether the repository path passes the filter.
func (f *PathFilter) Match(path string) bool {
	for _, pattern := range f.excludes {
		// Pattern validity was checked when creating the filter.
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}

	if len(f.includes) == 0 {
		return true
	}
	for _, pattern := range f.includes {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}

	return false
}
