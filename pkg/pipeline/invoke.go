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
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/status"
)

// Invoker runs one stage as an independent unit of work and streams its
// status records. Implementations decide the process model, tests inject
// in-process fakes.
type Invoker interface {
	// Invoke runs the named stage with the given arguments, forwarding
	// every record to observe, and returns the stage's terminal record.
	// A stream that ends without a terminal record is an error, as is a
	// stage that reports success but exits abnormally.
	Invoke(ctx context.Context, stage string, args []string, observe func(*status.Record)) (*status.Record, error)
}

// execInvoker runs stages as child processes of this binary, one process
// per stage run. The child's stdout carries only protocol records, its
// stderr passes through for progress bars.
type execInvoker struct {
	bin   string
	extra []string
}

// NewExecInvoker creates the production invoker, spawning stages through
// the currently running executable. extra arguments are appended to every
// invocation, carrying persistent flags down to the children.
func NewExecInvoker(extra ...string) (Invoker, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own executable: %w", err)
	}

	return &execInvoker{bin: bin, extra: extra}, nil
}

// Invoke spawns the stage subprocess and scans its record stream.
func (e *execInvoker) Invoke(ctx context.Context, stage string, args []string, observe func(*status.Record)) (*status.Record, error) {
	argv := make([]string, 0, 1+len(args)+len(e.extra))
	argv = append(argv, stage)
	argv = append(argv, args...)
	argv = append(argv, e.extra...)

	cmd := exec.CommandContext(ctx, e.bin, argv...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stage stdout: %w", err)
	}

	logrus.Debugf("run: invoking stage [argv: %v]", argv)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start stage %s: %w", stage, err)
	}

	decoder := status.NewDecoder(stdout)
	for {
		rec, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		if observe != nil {
			observe(rec)
		}
	}

	waitErr := cmd.Wait()

	terminal := decoder.Terminal()
	if terminal == nil {
		if waitErr != nil {
			return nil, fmt.Errorf("stage %s exited without a terminal record: %w", stage, waitErr)
		}
		return nil, fmt.Errorf("stage %s exited without a terminal record", stage)
	}
	if terminal.Complete() && waitErr != nil {
		return nil, fmt.Errorf("stage %s reported success but exited abnormally: %w", stage, waitErr)
	}

	return terminal, nil
}
