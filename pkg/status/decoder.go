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

package status

import (
	"bufio"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
)

// maxRecordSize bounds a single record line.
const maxRecordSize = 10 * 1024 * 1024

// Record is one decoded protocol record.
type Record struct {
	// Status is the progress tag, or StatusComplete on the success terminal.
	Status string

	// Err is the message of a failure terminal record, empty otherwise.
	Err string

	// Fields holds the payload of a success terminal record.
	Fields Fields

	// Raw is the record line exactly as read, without the trailing newline.
	Raw []byte
}

// Complete reports whether the record is the success terminal.
func (r *Record) Complete() bool {
	return r.Err == "" && r.Status == StatusComplete
}

// Failed reports whether the record is the failure terminal.
func (r *Record) Failed() bool {
	return r.Err != ""
}

// Terminal reports whether the record ends a stage run.
func (r *Record) Terminal() bool {
	return r.Complete() || r.Failed()
}

// Decoder is the observer half of the protocol. It scans records off a
// stream line by line and remembers the first terminal record it sees.
type Decoder struct {
	sc       *bufio.Scanner
	terminal *Record
}

// NewDecoder creates a decoder reading records from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordSize)
	return &Decoder{sc: sc}
}

// Next returns the next record on the stream. It returns io.EOF when the
// stream ends and an error for lines that are not valid protocol records.
func (d *Decoder) Next() (*Record, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read status stream: %w", err)
		}
		return nil, io.EOF
	}

	line := d.sc.Bytes()
	rec, err := Decode(line)
	if err != nil {
		return nil, err
	}

	if rec.Terminal() && d.terminal == nil {
		d.terminal = rec
	}
	return rec, nil
}

// Terminal returns the first terminal record seen, or nil if the stream
// ended (or has so far run) without one.
func (d *Decoder) Terminal() *Record {
	return d.terminal
}

// Decode parses a single record line.
func Decode(line []byte) (*Record, error) {
	var payload map[string]any
	if err := json.Unmarshal(line, &payload); err != nil {
		return nil, fmt.Errorf("malformed status record %q: %w", line, err)
	}

	rec := &Record{Raw: append([]byte(nil), line...)}

	if msg, ok := payload["error"]; ok {
		s, ok := msg.(string)
		if !ok {
			return nil, fmt.Errorf("malformed status record %q: error is not a string", line)
		}
		rec.Err = s
		return rec, nil
	}

	tag, ok := payload["status"]
	if !ok {
		return nil, fmt.Errorf("malformed status record %q: no status or error key", line)
	}
	s, ok := tag.(string)
	if !ok {
		return nil, fmt.Errorf("malformed status record %q: status is not a string", line)
	}
	rec.Status = s

	if s == StatusComplete {
		delete(payload, "status")
		if len(payload) > 0 {
			rec.Fields = Fields(payload)
		}
	}
	return rec, nil
}
