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

//go:build !onnx

package onnxrt

import "errors"

// Available indicates whether native inference support is compiled in.
const Available = false

// ErrNotCompiled is returned when inference is requested from a binary
// built without the onnx tag.
var ErrNotCompiled = errors.New("onnxruntime support not compiled in, rebuild with -tags onnx")

// Session runs forward passes of a BERT-style encoder graph.
type Session struct{}

// OpenSession fails, inference support is not compiled in.
func OpenSession(libPath, modelPath string, hiddenSize int) (*Session, error) {
	return nil, ErrNotCompiled
}

// Run fails, inference support is not compiled in.
func (s *Session) Run(ids, mask []int64) (*Result, error) {
	return nil, ErrNotCompiled
}
