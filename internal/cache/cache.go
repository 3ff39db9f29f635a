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

// Package cache keeps a ledger of downloaded model files so repeated runs
// of the download stage can skip files that are already present and
// unchanged. The ledger is a JSON file guarded by a file lock, safe across
// concurrent pipeline invocations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	godigest "github.com/opencontainers/go-digest"
)

const (
	// TTL is the time-to-live for ledger entries.
	TTL = 24 * time.Hour

	// FileLockRetryDelay is the delay between retries when acquiring file locks.
	FileLockRetryDelay = 100 * time.Millisecond

	// ledgerFile is the ledger filename inside the storage directory.
	ledgerFile = "btm-downloads.json"
)

// ErrNotFound is returned when a file has no ledger entry.
var ErrNotFound = errors.New("entry not found")

// Ledger records which local files were produced by which remote sources.
type Ledger interface {
	// Get retrieves the entry for a local file path.
	Get(ctx context.Context, path string) (*Entry, error)

	// Put inserts or updates the entry for a local file path.
	Put(ctx context.Context, entry *Entry) error
}

// Entry describes one downloaded file.
type Entry struct {
	// Path is the absolute path of the local file.
	Path string `json:"path"`

	// Source is the remote location the file was fetched from.
	Source string `json:"source"`

	// ModTime is the last modification time of the file when recorded.
	ModTime time.Time `json:"mod_time"`

	// Size is the size of the file in bytes.
	Size int64 `json:"size"`

	// Digest is the SHA-256 digest of the file.
	Digest godigest.Digest `json:"digest"`

	// CreatedAt is the time when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Matches reports whether the entry still describes the file on disk,
// comparing size and modification time.
func (e *Entry) Matches(info os.FileInfo) bool {
	return info.Size() == e.Size && info.ModTime().Equal(e.ModTime)
}

// ledger is the file-backed implementation of the Ledger interface.
type ledger struct {
	// storageDir is the directory holding the ledger file.
	storageDir string

	// flock guards the ledger file across processes.
	flock *flock.Flock
}

// New creates a ledger stored under storageDir.
func New(storageDir string) (Ledger, error) {
	l := &ledger{
		storageDir: storageDir,
	}

	if err := os.MkdirAll(filepath.Dir(l.storagePath()), 0755); err != nil {
		return nil, err
	}

	l.flock = flock.New(l.storagePath())
	return l, nil
}

// storagePath returns the path to the ledger file.
func (l *ledger) storagePath() string {
	return filepath.Join(l.storageDir, ledgerFile)
}

// readEntries reads all entries from the ledger file without locking.
// The caller must hold the lock.
func (l *ledger) readEntries() (map[string]*Entry, error) {
	data, err := os.ReadFile(l.storagePath())
	if err != nil {
		// A missing ledger is an empty ledger.
		if os.IsNotExist(err) {
			return make(map[string]*Entry), nil
		}
		return nil, err
	}

	if len(data) == 0 {
		return make(map[string]*Entry), nil
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	entryMap := make(map[string]*Entry, len(entries))
	for _, entry := range entries {
		entryMap[entry.Path] = entry
	}

	return entryMap, nil
}

// writeEntries writes entries to the ledger file without locking.
// The caller must hold the lock.
func (l *ledger) writeEntries(entryMap map[string]*Entry) error {
	entries := make([]*Entry, 0, len(entryMap))
	for _, entry := range entryMap {
		entries = append(entries, entry)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	return os.WriteFile(l.storagePath(), data, 0644)
}

// prune removes expired entries from the map in-place.
func (l *ledger) prune(entryMap map[string]*Entry) {
	now := time.Now()
	for path, entry := range entryMap {
		if now.Sub(entry.CreatedAt) > TTL {
			delete(entryMap, path)
		}
	}
}

// Get retrieves the entry for a local file path.
func (l *ledger) Get(ctx context.Context, path string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := l.flock.TryLockContext(ctx, FileLockRetryDelay); err != nil {
		return nil, err
	}
	defer l.flock.Unlock()

	entries, err := l.readEntries()
	if err != nil {
		return nil, err
	}

	entry, ok := entries[path]
	if !ok {
		return nil, ErrNotFound
	}

	if time.Since(entry.CreatedAt) > TTL {
		return nil, ErrNotFound
	}

	return entry, nil
}

// Put inserts or updates the entry for a local file path.
func (l *ledger) Put(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := l.flock.TryLockContext(ctx, FileLockRetryDelay); err != nil {
		return err
	}
	defer l.flock.Unlock()

	entryMap, err := l.readEntries()
	if err != nil {
		return err
	}

	entryMap[entry.Path] = entry

	l.prune(entryMap)

	return l.writeEntries(entryMap)
}
