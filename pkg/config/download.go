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
	"fmt"

	"github.com/SocketDev/socket-btm/pkg/artifact"
)

const (
	// defaultDownloadConcurrency is the default number of concurrent file
	// fetches.
	defaultDownloadConcurrency = 4
)

// Download carries the download command's configuration.
type Download struct {
	// Provider pins the hub source, empty means URL-based detection.
	Provider string

	// Include and Exclude override the default repository path filter.
	Include []string
	Exclude []string

	// Concurrency bounds parallel file fetches.
	Concurrency int

	// RequestRate caps hub requests per second, zero means unlimited.
	RequestRate float64
}

// NewDownload creates the download configuration with its defaults.
func NewDownload() *Download {
	return &Download{
		Concurrency: defaultDownloadConcurrency,
	}
}

// Validate checks the configuration.
func (d *Download) Validate() error {
	if d.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d", d.Concurrency)
	}

	if d.RequestRate < 0 {
		return fmt.Errorf("invalid request rate: %f", d.RequestRate)
	}

	if len(d.Include) > 0 || len(d.Exclude) > 0 {
		if _, err := artifact.NewPathFilter(d.Include, d.Exclude); err != nil {
			return err
		}
	}

	return nil
}

// PathFilter builds the repository path filter the configuration
// describes, the default filter when no patterns are given.
func (d *Download) PathFilter() (*artifact.PathFilter, error) {
	if len(d.Include) == 0 && len(d.Exclude) == 0 {
		return artifact.DefaultPathFilter(), nil
	}

	return artifact.NewPathFilter(d.Include, d.Exclude)
}
