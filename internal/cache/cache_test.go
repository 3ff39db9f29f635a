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

package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPutGet(t *testing.T) {
	ctx := context.Background()
	l, err := New(t.TempDir())
	require.NoError(t, err)

	entry := &Entry{
		Path:      "/tmp/cache/model.safetensors",
		Source:    "https://huggingface.co/org/model/resolve/main/model.safetensors",
		ModTime:   time.Now().Truncate(time.Second),
		Size:      1024,
		Digest:    "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		CreatedAt: time.Now(),
	}
	require.NoError(t, l.Put(ctx, entry))

	got, err := l.Get(ctx, entry.Path)
	require.NoError(t, err)
	assert.Equal(t, entry.Source, got.Source)
	assert.Equal(t, entry.Size, got.Size)
	assert.Equal(t, entry.Digest, got.Digest)
}

func TestLedgerGetMissing(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = l.Get(context.Background(), "/nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerExpiry(t *testing.T) {
	ctx := context.Background()
	l, err := New(t.TempDir())
	require.NoError(t, err)

	entry := &Entry{
		Path:      "/tmp/cache/old.bin",
		CreatedAt: time.Now().Add(-TTL - time.Minute),
	}
	require.NoError(t, l.Put(ctx, entry))

	_, err = l.Get(ctx, entry.Path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerUpdate(t *testing.T) {
	ctx := context.Background()
	l, err := New(t.TempDir())
	require.NoError(t, err)

	entry := &Entry{Path: "/tmp/cache/file", Size: 1, CreatedAt: time.Now()}
	require.NoError(t, l.Put(ctx, entry))

	entry.Size = 2
	require.NoError(t, l.Put(ctx, entry))

	got, err := l.Get(ctx, entry.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Size)
}

func TestEntryMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	entry := &Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()}
	assert.True(t, entry.Matches(info))

	entry.Size = 999
	assert.False(t, entry.Matches(info))
}
