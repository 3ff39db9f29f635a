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

//go:build onnx

package onnxrt

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Available indicates that native inference support is compiled in.
const Available = true

var (
	initOnce sync.Once
	initErr  error
)

// initRuntime loads the shared library once per process.
func initRuntime(libPath string) error {
	initOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Session runs forward passes of a BERT-style encoder graph.
type Session struct {
	mu         sync.Mutex
	modelPath  string
	hiddenSize int
}

// OpenSession initializes the runtime from libPath and prepares a session
// for the graph at modelPath with the given hidden dimension.
func OpenSession(libPath, modelPath string, hiddenSize int) (*Session, error) {
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	return &Session{
		modelPath:  modelPath,
		hiddenSize: hiddenSize,
	}, nil
}

// Run executes one forward pass, feeding input_ids, attention_mask and
// zeroed token_type_ids, and returns the last_hidden_state activation.
func (s *Session) Run(ids, mask []int64) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqLen := int64(len(ids))
	typeIDs := make([]int64, len(ids))

	shape := ort.NewShape(1, seqLen)
	outShape := ort.NewShape(1, seqLen, int64(s.hiddenSize))

	inputTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer inputTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputData := make([]float32, seqLen*int64(s.hiddenSize))
	outputTensor, err := ort.NewTensor(outShape, outputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		s.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		[]ort.Value{inputTensor, maskTensor, typeTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	data := make([]float32, len(outputData))
	copy(data, outputTensor.GetData())

	return &Result{
		Data:  data,
		Shape: []int64{1, seqLen, int64(s.hiddenSize)},
	}, nil
}
