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

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocketDev/socket-btm/pkg/status"
)

type fakeCall struct {
	stage string
	args  []string
}

// fakeOutcome scripts one Invoke call for a stage.
type fakeOutcome struct {
	progress []string
	terminal *status.Record
	err      error
	during   func(t *testing.T, args []string)
}

// fakeInvoker replays scripted outcomes per stage, in order. Stages with
// no script succeed with a bare complete record.
type fakeInvoker struct {
	t        *testing.T
	calls    []fakeCall
	outcomes map[string][]fakeOutcome
}

func newFakeInvoker(t *testing.T) *fakeInvoker {
	return &fakeInvoker{t: t, outcomes: make(map[string][]fakeOutcome)}
}

func (f *fakeInvoker) script(stage string, outcomes ...fakeOutcome) {
	f.outcomes[stage] = append(f.outcomes[stage], outcomes...)
}

func (f *fakeInvoker) stages() []string {
	var stages []string
	for _, call := range f.calls {
		stages = append(stages, call.stage)
	}
	return stages
}

func (f *fakeInvoker) argsOf(stage string) []string {
	for _, call := range f.calls {
		if call.stage == stage {
			return call.args
		}
	}
	return nil
}

func (f *fakeInvoker) Invoke(ctx context.Context, stage string, args []string, observe func(*status.Record)) (*status.Record, error) {
	f.calls = append(f.calls, fakeCall{stage: stage, args: args})

	outcome := fakeOutcome{terminal: &status.Record{Status: status.StatusComplete}}
	if queue := f.outcomes[stage]; len(queue) > 0 {
		outcome, f.outcomes[stage] = queue[0], queue[1:]
	}

	if outcome.during != nil {
		outcome.during(f.t, args)
	}
	for _, tag := range outcome.progress {
		observe(&status.Record{Status: tag})
	}
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.terminal, nil
}

func testPlan(t *testing.T) *Plan {
	return &Plan{
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		WorkDir:    t.TempDir(),
		NumHeads:   12,
		HiddenSize: 384,
		Attempts:   1,
	}
}

func TestRunnerRunsStagesInOrder(t *testing.T) {
	invoker := newFakeInvoker(t)
	invoker.script("download", fakeOutcome{
		progress: []string{"downloading_model", "downloading_tokenizer"},
		terminal: &status.Record{Status: status.StatusComplete, Fields: status.Fields{"cache_dir": "/c"}},
	})

	var observed []string
	runner := NewRunner(invoker, WithObserver(func(stage string, rec *status.Record) {
		observed = append(observed, stage+":"+rec.Status)
	}))

	plan := testPlan(t)
	result, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{"download", "export", "optimize", "quantize", "verify"}, invoker.stages())
	assert.True(t, result.Completed())
	require.Len(t, result.Stages, 5)
	for _, sr := range result.Stages {
		assert.NoError(t, sr.Err)
		assert.Equal(t, 1, sr.Attempts)
		require.NotNil(t, sr.Terminal)
		assert.True(t, sr.Terminal.Complete())
	}

	assert.Equal(t, []string{"download:downloading_model", "download:downloading_tokenizer"}, observed)

	assert.Equal(t, []string{plan.Model, plan.CacheDir()}, invoker.argsOf("download"))
	assert.Equal(t, []string{plan.CacheDir(), plan.ExportDir()}, invoker.argsOf("export"))
	assert.Equal(t, []string{plan.ExportedModelPath(), plan.OptimizedModelPath(), "12", "384"}, invoker.argsOf("optimize"))
	assert.Equal(t, []string{plan.OptimizedDir(), plan.QuantizedDir()}, invoker.argsOf("quantize"))
	assert.Equal(t, []string{plan.QuantizedModelPath(), plan.QuantizedDir()}, invoker.argsOf("verify"))
}

func TestRunnerThreadsPlanOptions(t *testing.T) {
	invoker := newFakeInvoker(t)
	runner := NewRunner(invoker)

	plan := testPlan(t)
	plan.Provider = "s3"
	plan.ProbeText = "hello world"
	plan.Include = []string{"*.json"}
	plan.Exclude = []string{"*.h5"}

	_, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{
		plan.Model, plan.CacheDir(),
		"--provider", "s3",
		"--include", "*.json",
		"--exclude", "*.h5",
	}, invoker.argsOf("download"))
	assert.Equal(t, []string{plan.QuantizedModelPath(), plan.QuantizedDir(), "hello world"}, invoker.argsOf("verify"))
}

func TestRunnerHaltsOnFailure(t *testing.T) {
	invoker := newFakeInvoker(t)
	invoker.script("optimize", fakeOutcome{
		progress: []string{"loading_model"},
		terminal: &status.Record{Err: "Optimization failed: unsupported op"},
	})

	runner := NewRunner(invoker)
	result, err := runner.Run(context.Background(), testPlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline halted at stage optimize")
	assert.Contains(t, err.Error(), "Optimization failed: unsupported op")

	assert.Equal(t, []string{"download", "export", "optimize"}, invoker.stages(),
		"no stage runs after the first failure")
	assert.False(t, result.Completed())
	require.Len(t, result.Stages, 3)
	assert.Error(t, result.Stages[2].Err)
}

func TestRunnerRetriesWithCleanDirectory(t *testing.T) {
	plan := testPlan(t)
	plan.Attempts = 2

	marker := filepath.Join(plan.ExportDir(), "partial.onnx")
	var markerSeenOnRetry bool

	invoker := newFakeInvoker(t)
	invoker.script("export",
		fakeOutcome{
			during: func(t *testing.T, args []string) {
				require.NoError(t, os.MkdirAll(plan.ExportDir(), 0755))
				require.NoError(t, os.WriteFile(marker, []byte("partial"), 0644))
			},
			terminal: &status.Record{Err: "Export failed: interrupted"},
		},
		fakeOutcome{
			during: func(t *testing.T, args []string) {
				_, err := os.Stat(marker)
				markerSeenOnRetry = err == nil
			},
			terminal: &status.Record{Status: status.StatusComplete},
		},
	)

	runner := NewRunner(invoker)
	result, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.False(t, markerSeenOnRetry, "retry must start from a clean output directory")
	assert.True(t, result.Completed())
	assert.Equal(t, 2, result.Stages[1].Attempts)
}

func TestRunnerUnterminatedStreamFails(t *testing.T) {
	invoker := newFakeInvoker(t)
	invoker.script("export", fakeOutcome{
		progress: []string{"exporting_to_onnx"},
		err:      errors.New("stage export exited without a terminal record"),
	})

	runner := NewRunner(invoker)
	result, err := runner.Run(context.Background(), testPlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited without a terminal record")
	assert.Equal(t, []string{"download", "export"}, invoker.stages())
	assert.False(t, result.Completed())
}

func TestRunnerDerivesGeometry(t *testing.T) {
	plan := testPlan(t)
	plan.NumHeads = 0
	plan.HiddenSize = 0

	invoker := newFakeInvoker(t)
	invoker.script("export", fakeOutcome{
		during: func(t *testing.T, args []string) {
			require.NoError(t, os.MkdirAll(plan.ExportDir(), 0755))
			config := `{"model_type":"bert","num_attention_heads":12,"hidden_size":384,"num_hidden_layers":6}`
			require.NoError(t, os.WriteFile(filepath.Join(plan.ExportDir(), "config.json"), []byte(config), 0644))
		},
		terminal: &status.Record{Status: status.StatusComplete},
	})

	runner := NewRunner(invoker)
	_, err := runner.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []string{plan.ExportedModelPath(), plan.OptimizedModelPath(), "12", "384"}, invoker.argsOf("optimize"))
}

func TestRunnerGeometryFailureDoesNotRetry(t *testing.T) {
	plan := testPlan(t)
	plan.NumHeads = 0
	plan.HiddenSize = 0
	plan.Attempts = 3

	invoker := newFakeInvoker(t)
	runner := NewRunner(invoker)

	result, err := runner.Run(context.Background(), plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to derive transformer geometry")

	// The optimize child is never spawned, argument construction failed.
	assert.Equal(t, []string{"download", "export"}, invoker.stages())
	assert.Equal(t, 1, result.Stages[2].Attempts, "an unrecoverable failure is not retried")
}
