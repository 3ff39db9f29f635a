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

// Package pytool runs the Python collaborators that perform the numerical
// transformations. A collaborator is a small embedded script executed via
// "python -c", speaking the status record protocol on its stdout while its
// own prints and library noise are diverted to stderr.
package pytool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/status"
)

// DefaultInterpreter is the interpreter used when none is configured.
const DefaultInterpreter = "python3"

// Tool runs collaborator scripts under a fixed Python interpreter.
type Tool struct {
	python string
}

// New creates a tool for the given interpreter, falling back to the
// default when empty.
func New(python string) *Tool {
	if python == "" {
		python = DefaultInterpreter
	}

	return &Tool{python: python}
}

// Probe verifies the interpreter is on PATH and the named module imports.
// The returned error carries diagnostic detail for the log, callers map it
// to the canonical wire message.
func (t *Tool) Probe(ctx context.Context, module string) error {
	if _, err := exec.LookPath(t.python); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", t.python, err)
	}

	cmd := exec.CommandContext(ctx, t.python, "-c", "import "+module)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to import %s: %s", module, tail(string(out), err))
	}

	return nil
}

// Run executes the script with args, invoking onProgress for every
// progress record the collaborator emits and returning the payload of its
// success terminal record. A collaborator failure surfaces its reported
// error message, or the tail of its stderr when it died without one.
func (t *Tool) Run(ctx context.Context, script string, args []string, onProgress func(tag string)) (status.Fields, error) {
	argv := append([]string{"-c", script}, args...)
	cmd := exec.CommandContext(ctx, t.python, argv...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open collaborator stdout: %w", err)
	}

	logrus.Infof("pytool: running %s collaborator with args %v", t.python, args)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", t.python, err)
	}

	dec := status.NewDecoder(stdout)
	var decodeErr error
	for {
		rec, err := dec.Next()
		if err != nil {
			if err != io.EOF {
				decodeErr = err
			}
			break
		}
		if !rec.Terminal() && onProgress != nil {
			onProgress(rec.Status)
		}
	}
	// Drain the pipe so Wait never blocks on a full buffer.
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := cmd.Wait()
	if stderr.Len() > 0 {
		logrus.Debugf("pytool: collaborator stderr:\n%s", stderr.String())
	}

	term := dec.Terminal()
	switch {
	case term != nil && term.Failed():
		return nil, errors.New(term.Err)
	case waitErr != nil:
		return nil, fmt.Errorf("collaborator failed: %s", tail(stderr.String(), waitErr))
	case decodeErr != nil:
		return nil, decodeErr
	case term == nil:
		return nil, errors.New("collaborator exited without a terminal record")
	default:
		return term.Fields, nil
	}
}

// tail returns the last non-empty output line, the exception message for
// Python tracebacks, falling back to the process error.
func tail(out string, err error) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return err.Error()
}
