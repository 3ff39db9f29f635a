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
	"context"
	_ "embed"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/artifact"
	"github.com/SocketDev/socket-btm/pkg/status"
)

//go:embed scripts/quantize.py
var quantizeScript string

// Quantize applies dynamic uint8 quantization to the optimized graph,
// producing model_quantized.onnx beside the propagated sidecars. It
// requires model.onnx to pre-exist in its input directory.
type Quantize struct {
	tool      Tool
	modelDir  string
	outputDir string
}

// NewQuantize creates the quantize stage reading model.onnx from modelDir
// and writing the quantized weights into outputDir.
func NewQuantize(tool Tool, modelDir, outputDir string) *Quantize {
	return &Quantize{tool: tool, modelDir: modelDir, outputDir: outputDir}
}

// Name returns the stage name.
func (q *Quantize) Name() string {
	return "quantize"
}

// Resolve probes for the onnxruntime quantizer.
func (q *Quantize) Resolve(ctx context.Context) error {
	if err := q.tool.Probe(ctx, "onnxruntime.quantization"); err != nil {
		logrus.Errorf("quantize: collaborator probe failed: %v", err)
		return DependencyMissing("onnxruntime not installed")
	}

	return nil
}

// Inputs declares the canonical weights file inside the input directory.
func (q *Quantize) Inputs() []string {
	return []string{filepath.Join(q.modelDir, artifact.WeightsFile)}
}

// OutputDir declares the quantize target directory.
func (q *Quantize) OutputDir() string {
	return q.outputDir
}

// Execute delegates the quantization to the collaborator and propagates
// the sidecars once the quantized weights are written.
func (q *Quantize) Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error) {
	fields, err := q.tool.Run(ctx, quantizeScript, []string{q.modelDir, q.outputDir}, rep.Progress)
	if err != nil {
		return nil, err
	}

	if err := artifact.PropagateSidecars(q.modelDir, q.outputDir); err != nil {
		return nil, err
	}

	return fields, nil
}
