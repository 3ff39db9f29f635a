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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	// defaultDirName is the tool's directory under the user's home.
	defaultDirName = ".socket-btm"

	// defaultLogLevel is the log level used when none is configured.
	defaultLogLevel = "info"

	// defaultPython is the interpreter running the conversion
	// collaborators.
	defaultPython = "python3"
)

// Root carries the persistent configuration shared by every command.
type Root struct {
	// StorageDir holds tool state, the installed ONNX Runtime library and
	// the download ledger.
	StorageDir string

	// LogDir holds the log file.
	LogDir string

	// LogLevel is the logrus level name.
	LogLevel string

	// DisableProgress turns off the stderr progress bars.
	DisableProgress bool

	// Python is the interpreter for the conversion collaborators.
	Python string
}

// NewRoot creates the root configuration with its defaults.
func NewRoot() (*Root, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}

	storageDir := filepath.Join(home, defaultDirName)
	return &Root{
		StorageDir: storageDir,
		LogDir:     filepath.Join(storageDir, "logs"),
		LogLevel:   defaultLogLevel,
		Python:     defaultPython,
	}, nil
}

// Validate checks the configuration before any command runs.
func (r *Root) Validate() error {
	if r.StorageDir == "" {
		return errors.New("storage directory is required")
	}
	if r.LogDir == "" {
		return errors.New("log directory is required")
	}
	if _, err := logrus.ParseLevel(r.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", r.LogLevel)
	}
	if r.Python == "" {
		return errors.New("python interpreter is required")
	}

	return nil
}
