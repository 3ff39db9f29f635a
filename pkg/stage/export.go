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

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/status"
)

//go:embed scripts/export.py
var exportScript string

// Export converts a downloaded checkpoint into an ONNX graph through the
// optimum exporter. The exporter writes the graph as model.onnx and lays
// down its own copies of the configuration sidecars.
type Export struct {
	tool      Tool
	sourceDir string
	outputDir string
}

// NewExport creates the export stage reading the checkpoint from
// sourceDir and writing the graph into outputDir.
func NewExport(tool Tool, sourceDir, outputDir string) *Export {
	return &Export{tool: tool, sourceDir: sourceDir, outputDir: outputDir}
}

// Name returns the stage name.
func (e *Export) Name() string {
	return "export"
}

// Resolve probes for the optimum exporter.
func (e *Export) Resolve(ctx context.Context) error {
	if err := e.tool.Probe(ctx, "optimum.exporters.onnx"); err != nil {
		logrus.Errorf("export: collaborator probe failed: %v", err)
		return DependencyMissing("optimum[exporters] not installed")
	}

	return nil
}

// Inputs declares the checkpoint directory.
func (e *Export) Inputs() []string {
	return []string{e.sourceDir}
}

// OutputDir declares the export target directory.
func (e *Export) OutputDir() string {
	return e.outputDir
}

// Execute delegates the export to the collaborator.
func (e *Export) Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error) {
	return e.tool.Run(ctx, exportScript, []string{e.sourceDir, e.outputDir}, rep.Progress)
}
