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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDownload(t *testing.T) {
	download := NewDownload()

	assert.Equal(t, 4, download.Concurrency)
	assert.NoError(t, download.Validate())
}

func TestDownloadValidate(t *testing.T) {
	download := NewDownload()
	download.Concurrency = 0
	assert.ErrorContains(t, download.Validate(), "invalid concurrency")

	download = NewDownload()
	download.RequestRate = -1
	assert.ErrorContains(t, download.Validate(), "invalid request rate")

	download = NewDownload()
	download.Include = []string{"[bad"}
	assert.ErrorContains(t, download.Validate(), "invalid include pattern")
}

func TestDownloadPathFilter(t *testing.T) {
	download := NewDownload()
	filter, err := download.PathFilter()
	require.NoError(t, err)
	assert.True(t, filter.Match("model.safetensors"), "default filter admits weights")
	assert.False(t, filter.Match("model.h5"), "default filter drops alternate framework weights")

	download.Include = []string{"*.json"}
	filter, err = download.PathFilter()
	require.NoError(t, err)
	assert.True(t, filter.Match("config.json"))
	assert.False(t, filter.Match("model.safetensors"))
}
