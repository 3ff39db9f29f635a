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
	"errors"
	"fmt"
)

// Kind classifies a stage failure. The kind never crosses the status
// stream, which carries only the message, but internal callers branch on
// it for logging and retry decisions.
type Kind string

const (
	// KindDependencyMissing means a delegated collaborator is unavailable,
	// detected during capability resolution before any filesystem write.
	KindDependencyMissing Kind = "dependency_missing"

	// KindInputNotFound means a declared input artifact does not exist,
	// detected before the stage creates its output directory.
	KindInputNotFound Kind = "input_not_found"

	// KindExecutionFailure means the transformation itself failed. Partial
	// output artifacts may exist and are left in place.
	KindExecutionFailure Kind = "execution_failure"
)

// Error tags an underlying error with its failure kind.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the wire message, the underlying error text.
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// DependencyMissing creates a dependency failure with its wire message.
func DependencyMissing(message string) *Error {
	return &Error{Kind: KindDependencyMissing, Err: errors.New(message)}
}

// InputNotFound creates a missing-input failure for an artifact path.
func InputNotFound(path string) *Error {
	return &Error{Kind: KindInputNotFound, Err: fmt.Errorf("Model not found: %s", path)}
}

// ExecutionFailure tags err as an execution failure.
func ExecutionFailure(err error) *Error {
	return &Error{Kind: KindExecutionFailure, Err: err}
}

// Classify returns err tagged with a kind, leaving already tagged errors
// alone and treating everything else as an execution failure.
func Classify(err error) *Error {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr
	}

	return ExecutionFailure(err)
}

// KindOf returns the kind of a tagged error.
func KindOf(err error) (Kind, bool) {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr.Kind, true
	}

	return "", false
}
