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
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/artifact"
	"github.com/SocketDev/socket-btm/pkg/status"
)

//go:embed scripts/optimize.py
var optimizeScript string

// Optimize rewrites an ONNX graph with BERT fusion passes. Both the input
// and the output are weights file paths, the sidecars travel from the
// input's directory to the output's.
type Optimize struct {
	tool       Tool
	modelPath  string
	outputPath string
	numHeads   int
	hiddenSize int
}

// NewOptimize creates the optimize stage rewriting modelPath into
// outputPath with the given transformer geometry.
func NewOptimize(tool Tool, modelPath, outputPath string, numHeads, hiddenSize int) *Optimize {
	return &Optimize{
		tool:       tool,
		modelPath:  modelPath,
		outputPath: outputPath,
		numHeads:   numHeads,
		hiddenSize: hiddenSize,
	}
}

// Name returns the stage name.
func (o *Optimize) Name() string {
	return "optimize"
}

// Resolve probes for the onnxruntime graph optimizer.
func (o *Optimize) Resolve(ctx context.Context) error {
	if err := o.tool.Probe(ctx, "onnxruntime.transformers.optimizer"); err != nil {
		logrus.Errorf("optimize: collaborator probe failed: %v", err)
		return DependencyMissing("onnxruntime not installed")
	}

	return nil
}

// Inputs declares the input weights file.
func (o *Optimize) Inputs() []string {
	return []string{o.modelPath}
}

// OutputDir declares the directory holding the optimized weights.
func (o *Optimize) OutputDir() string {
	return filepath.Dir(o.outputPath)
}

// Execute delegates the graph rewrite to the collaborator and propagates
// the sidecars once the optimized weights are saved.
func (o *Optimize) Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error) {
	args := []string{
		o.modelPath,
		o.outputPath,
		strconv.Itoa(o.numHeads),
		strconv.Itoa(o.hiddenSize),
	}
	fields, err := o.tool.Run(ctx, optimizeScript, args, rep.Progress)
	if err != nil {
		return nil, err
	}

	if err := artifact.PropagateSidecars(filepath.Dir(o.modelPath), filepath.Dir(o.outputPath)); err != nil {
		return nil, err
	}

	return fields, nil
}
