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

// Package status implements the line-oriented JSON status protocol spoken by
// every stage command. A stage run emits a series of self-contained records,
// one per line, and ends with exactly one terminal record:
//
//	{"status":"downloading_model"}                 progress
//	{"status":"complete","cache_dir":"./cache"}    success terminal
//	{"error":"onnxruntime not installed"}          failure terminal
package status

import (
	"bufio"
	"io"
	"sync"

	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
)

// StatusComplete is the status value of the success terminal record.
const StatusComplete = "complete"

// Fields carries the extra payload of a success terminal record.
type Fields map[string]any

// Reporter is the producer half of the protocol. It writes one record per
// line and flushes after every record, so an observer on the other end of a
// pipe sees each record as soon as it is emitted. Safe for concurrent use.
type Reporter struct {
	mu       sync.Mutex
	w        *bufio.Writer
	finished bool
}

// NewReporter creates a reporter writing records to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: bufio.NewWriter(w)}
}

// Progress emits a progress record announcing the substep about to start.
func (r *Reporter) Progress(tag string) {
	r.emit(map[string]any{"status": tag}, false)
}

// Complete emits the success terminal record carrying the given payload
// fields. Records emitted after a terminal record are dropped.
func (r *Reporter) Complete(fields Fields) {
	rec := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec["status"] = StatusComplete
	r.emit(rec, true)
}

// Fail emits the failure terminal record carrying the error message.
// Records emitted after a terminal record are dropped.
func (r *Reporter) Fail(msg string) {
	r.emit(map[string]any{"error": msg}, true)
}

// Finished reports whether a terminal record has been emitted.
func (r *Reporter) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// emit serializes the record as compact JSON followed by a newline and
// flushes. The terminal-once rule is enforced here so a buggy call site
// cannot write past the end of the stream.
func (r *Reporter) emit(rec map[string]any, terminal bool) {
	data, err := json.Marshal(rec)
	if err != nil {
		logrus.Errorf("status: failed to marshal record: %v", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		logrus.Warnf("status: dropped record emitted after terminal: %s", data)
		return
	}
	if terminal {
		r.finished = true
	}

	_, _ = r.w.Write(data)
	_ = r.w.WriteByte('\n')
	_ = r.w.Flush()
}
