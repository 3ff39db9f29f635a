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

// Package pipeline drives the five conversion stages in order, threading
// each stage's output directory into the next stage's input and halting
// at the first failure.
package pipeline

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/SocketDev/socket-btm/pkg/artifact"
)

//go:embed plan_schema.json
var planSchema string

const (
	defaultWorkDir  = "build"
	defaultAttempts = 1
)

// Plan is the build plan a pipeline run executes, loaded from a YAML file
// validated against the embedded schema.
type Plan struct {
	// Model is the model URL or owner/repo identifier to convert.
	Model string `yaml:"model"`

	// Provider pins the hub source, empty means URL-based detection.
	Provider string `yaml:"provider"`

	// WorkDir holds the per-stage artifact directories.
	WorkDir string `yaml:"work_dir"`

	// NumHeads and HiddenSize are the transformer geometry handed to the
	// optimize stage. Zero values are derived from the exported
	// config.json once the export stage has run.
	NumHeads   int `yaml:"num_attention_heads"`
	HiddenSize int `yaml:"hidden_size"`

	// ProbeText is the verification sentence, empty selects the stage's
	// default.
	ProbeText string `yaml:"probe_text"`

	// Attempts is how many times a failing stage is run before the
	// pipeline halts. Retries start from a clean output directory.
	Attempts int `yaml:"attempts"`

	// Include and Exclude override the download stage's path filter.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// LoadPlan reads, validates and parses a build plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}

	plan, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}

	return plan, nil
}

// ParsePlan validates plan bytes against the schema and parses them.
func ParsePlan(data []byte) (*Plan, error) {
	if err := validatePlan(data); err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	if plan.WorkDir == "" {
		plan.WorkDir = defaultWorkDir
	}
	if plan.Attempts == 0 {
		plan.Attempts = defaultAttempts
	}

	return &plan, nil
}

// validatePlan checks the YAML document against the embedded JSON Schema.
// The document is round-tripped through JSON first, the schema library
// validates decoded JSON values.
func validatePlan(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse plan: %w", err)
	}
	if doc == nil {
		return errors.New("plan is empty")
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize plan: %w", err)
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to normalize plan: %w", err)
	}

	if err := compiledPlanSchema().Validate(value); err != nil {
		return fmt.Errorf("plan does not match schema: %w", err)
	}

	return nil
}

var (
	planSchemaOnce     sync.Once
	planSchemaCompiled *jsonschema.Schema
)

// compiledPlanSchema compiles the embedded schema once. The schema is a
// compile-time constant covered by tests, compilation cannot fail at run
// time.
func compiledPlanSchema() *jsonschema.Schema {
	planSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchema))
		if err != nil {
			panic(fmt.Sprintf("embedded plan schema is not JSON: %v", err))
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan_schema.json", doc); err != nil {
			panic(fmt.Sprintf("failed to add plan schema resource: %v", err))
		}

		schema, err := compiler.Compile("plan_schema.json")
		if err != nil {
			panic(fmt.Sprintf("failed to compile plan schema: %v", err))
		}
		planSchemaCompiled = schema
	})

	return planSchemaCompiled
}

// CacheDir is the download stage's output directory.
func (p *Plan) CacheDir() string {
	return filepath.Join(p.WorkDir, "cache")
}

// ExportDir is the export stage's output directory.
func (p *Plan) ExportDir() string {
	return filepath.Join(p.WorkDir, "export")
}

// ExportedModelPath is the ONNX graph the export stage produces.
func (p *Plan) ExportedModelPath() string {
	return filepath.Join(p.ExportDir(), artifact.WeightsFile)
}

// OptimizedDir is the optimize stage's output directory.
func (p *Plan) OptimizedDir() string {
	return filepath.Join(p.WorkDir, "optimized")
}

// OptimizedModelPath is the rewritten graph the optimize stage produces.
func (p *Plan) OptimizedModelPath() string {
	return filepath.Join(p.OptimizedDir(), artifact.WeightsFile)
}

// QuantizedDir is the quantize stage's output directory. Verification
// reads both the quantized weights and the accumulated sidecars from it.
func (p *Plan) QuantizedDir() string {
	return filepath.Join(p.WorkDir, "quantized")
}

// QuantizedModelPath is the pipeline's final artifact.
func (p *Plan) QuantizedModelPath() string {
	return filepath.Join(p.QuantizedDir(), artifact.QuantizedFile)
}
