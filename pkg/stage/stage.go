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

// Package stage implements the conversion pipeline stages and the contract
// every stage run follows: resolve collaborators, validate declared
// inputs, create the output directory, execute, and emit exactly one
// terminal status record.
package stage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/status"
)

// Tool runs Python collaborator scripts, satisfied by pytool.Tool.
type Tool interface {
	// Probe verifies the interpreter and the named module are available.
	Probe(ctx context.Context, module string) error

	// Run executes a collaborator script, relaying its progress tags, and
	// returns the payload of its success terminal record.
	Run(ctx context.Context, script string, args []string, onProgress func(tag string)) (status.Fields, error)
}

// Stage is one pipeline transformation. Implementations do no filesystem
// writes before Execute, the runner handles resolution, validation and
// output directory creation in a fixed order.
type Stage interface {
	// Name returns the stage name as used on the command line.
	Name() string

	// Resolve performs one-shot capability resolution for the stage's
	// delegated collaborators. A tagged dependency error carries the
	// canonical wire message.
	Resolve(ctx context.Context) error

	// Inputs returns the artifact paths that must exist before the stage
	// touches the filesystem.
	Inputs() []string

	// OutputDir returns the directory the stage writes into, or "" for
	// stages that produce no artifacts.
	OutputDir() string

	// Execute performs the transformation, emitting a progress record
	// before each substep, and returns the payload of the success
	// terminal record.
	Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error)
}

// Run drives a single stage run and emits its terminal record. The
// returned error is the tagged failure, or nil on success. Runs are single
// pass, recovery is rerunning the stage against a clean output directory.
func Run(ctx context.Context, s Stage, rep *status.Reporter) error {
	if err := s.Resolve(ctx); err != nil {
		var stageErr *Error
		if !errors.As(err, &stageErr) {
			stageErr = &Error{Kind: KindDependencyMissing, Err: err}
		}
		return fail(s, rep, stageErr)
	}

	for _, input := range s.Inputs() {
		if _, err := os.Stat(input); err != nil {
			return fail(s, rep, InputNotFound(input))
		}
	}

	if dir := s.OutputDir(); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fail(s, rep, ExecutionFailure(fmt.Errorf("failed to create output directory %s: %w", dir, err)))
		}
	}

	fields, err := s.Execute(ctx, rep)
	if err != nil {
		return fail(s, rep, Classify(err))
	}

	rep.Complete(fields)
	return nil
}

// fail emits the failure terminal record and returns the tagged error.
func fail(s Stage, rep *status.Reporter, stageErr *Error) error {
	logrus.Errorf("stage %s failed [kind: %s]: %v", s.Name(), stageErr.Kind, stageErr.Err)
	rep.Fail(stageErr.Error())
	return stageErr
}
