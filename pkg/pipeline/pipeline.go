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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/modelconfig"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// StageResult is one stage's final outcome within a pipeline run.
type StageResult struct {
	// Stage is the stage name.
	Stage string

	// Terminal is the success terminal record, nil when the stage failed.
	Terminal *status.Record

	// OutputDir is the stage's output directory, "" for verify.
	OutputDir string

	// Err is the failure that halted the stage, nil on success.
	Err error

	// Attempts is how many runs the stage took.
	Attempts int

	// Duration spans all attempts.
	Duration time.Duration
}

// Result is the ordered outcome of one pipeline run.
type Result struct {
	// Stages holds one entry per invoked stage, in invocation order. A
	// halted run ends with its failing stage.
	Stages []StageResult
}

// Completed reports whether every stage reached its success terminal.
func (r *Result) Completed() bool {
	if len(r.Stages) == 0 {
		return false
	}
	for _, s := range r.Stages {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Observer receives every status record a stage emits, live.
type Observer func(stage string, rec *status.Record)

// Option configures a Runner.
type Option func(*Runner)

// WithObserver replaces the default log-based record sink.
func WithObserver(observe Observer) Option {
	return func(r *Runner) {
		r.observe = observe
	}
}

// Runner sequences the conversion stages for one plan. Stages run
// strictly in order, each stage's output directory is the next stage's
// input, and the run halts at the first stage that exhausts its attempts.
type Runner struct {
	invoker Invoker
	observe Observer
}

// NewRunner creates a runner invoking stages through invoker.
func NewRunner(invoker Invoker, opts ...Option) *Runner {
	r := &Runner{
		invoker: invoker,
		observe: logObserver,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// logObserver is the default record sink, progress tags go to the log.
func logObserver(stage string, rec *status.Record) {
	if rec.Terminal() {
		return
	}
	logrus.Infof("run: %s [stage: %s]", rec.Status, stage)
}

// step is one planned stage invocation. Arguments are built lazily, the
// optimize stage's geometry is only known once export has run.
type step struct {
	name      string
	outputDir string
	args      func() ([]string, error)
}

// Run executes the plan. The returned Result lists every invoked stage,
// including the failing one on a halted run.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Result, error) {
	logHostInfo(ctx)

	steps := r.plan(plan)
	result := &Result{}

	for _, s := range steps {
		logrus.Infof("run: stage %s starting", s.name)

		sr := r.runStage(ctx, s, plan.Attempts)
		result.Stages = append(result.Stages, sr)

		if sr.Err != nil {
			logrus.Errorf("run: stage %s failed after %d attempt(s): %v", s.name, sr.Attempts, sr.Err)
			return result, fmt.Errorf("pipeline halted at stage %s: %w", s.name, sr.Err)
		}

		logrus.Infof("run: stage %s complete [attempts: %d, duration: %s]",
			s.name, sr.Attempts, sr.Duration.Round(time.Millisecond))
	}

	logrus.Infof("run: pipeline complete [artifact: %s]", plan.QuantizedModelPath())
	return result, nil
}

// plan lays out the five stage invocations for a build plan.
func (r *Runner) plan(plan *Plan) []step {
	return []step{
		{
			name:      "download",
			outputDir: plan.CacheDir(),
			args: func() ([]string, error) {
				args := []string{plan.Model, plan.CacheDir()}
				if plan.Provider != "" {
					args = append(args, "--provider", plan.Provider)
				}
				for _, pattern := range plan.Include {
					args = append(args, "--include", pattern)
				}
				for _, pattern := range plan.Exclude {
					args = append(args, "--exclude", pattern)
				}
				return args, nil
			},
		},
		{
			name:      "export",
			outputDir: plan.ExportDir(),
			args: func() ([]string, error) {
				return []string{plan.CacheDir(), plan.ExportDir()}, nil
			},
		},
		{
			name:      "optimize",
			outputDir: plan.OptimizedDir(),
			args: func() ([]string, error) {
				numHeads, hiddenSize, err := deriveGeometry(plan)
				if err != nil {
					return nil, err
				}
				return []string{
					plan.ExportedModelPath(),
					plan.OptimizedModelPath(),
					strconv.Itoa(numHeads),
					strconv.Itoa(hiddenSize),
				}, nil
			},
		},
		{
			name:      "quantize",
			outputDir: plan.QuantizedDir(),
			args: func() ([]string, error) {
				return []string{plan.OptimizedDir(), plan.QuantizedDir()}, nil
			},
		},
		{
			name: "verify",
			args: func() ([]string, error) {
				args := []string{plan.QuantizedModelPath(), plan.QuantizedDir()}
				if plan.ProbeText != "" {
					args = append(args, plan.ProbeText)
				}
				return args, nil
			},
		},
	}
}

// runStage runs one stage up to attempts times. Every retry deletes the
// stage's output directory first, reruns start from a clean slate.
func (r *Runner) runStage(ctx context.Context, s step, attempts int) StageResult {
	if attempts < 1 {
		attempts = 1
	}

	started := time.Now()
	result := StageResult{Stage: s.name, OutputDir: s.outputDir}

	result.Err = retry.Do(
		func() error {
			result.Attempts++

			args, err := s.args()
			if err != nil {
				return retry.Unrecoverable(err)
			}

			terminal, err := r.invoker.Invoke(ctx, s.name, args, func(rec *status.Record) {
				r.observe(s.name, rec)
			})
			if err != nil {
				return err
			}
			if terminal.Failed() {
				return errors.New(terminal.Err)
			}

			result.Terminal = terminal
			return nil
		},
		retry.Attempts(uint(attempts)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.Delay(1*time.Second),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logrus.Warnf("run: stage %s attempt %d failed, retrying against a clean directory: %v", s.name, n+1, err)
			cleanOutputDir(s.outputDir)
		}),
	)

	result.Duration = time.Since(started)
	return result
}

// cleanOutputDir deletes a stage's output directory before a rerun. The
// stage recreates it on entry.
func cleanOutputDir(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logrus.Warnf("run: failed to clean %s: %v", dir, err)
	}
}

// deriveGeometry resolves the optimize stage's transformer geometry,
// reading the exported config.json for any value the plan leaves at zero.
func deriveGeometry(plan *Plan) (int, int, error) {
	numHeads, hiddenSize := plan.NumHeads, plan.HiddenSize
	if numHeads > 0 && hiddenSize > 0 {
		return numHeads, hiddenSize, nil
	}

	config, err := modelconfig.Load(plan.ExportDir())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to derive transformer geometry: %w", err)
	}

	numHeads, hiddenSize = config.Geometry(numHeads, hiddenSize)
	if numHeads <= 0 || hiddenSize <= 0 {
		return 0, 0, errors.New("transformer geometry unknown, set num_attention_heads and hidden_size in the plan")
	}

	logrus.Infof("run: derived geometry [heads: %d, hidden: %d]", numHeads, hiddenSize)
	return numHeads, hiddenSize, nil
}
