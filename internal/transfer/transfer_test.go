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

package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SocketDev/socket-btm/internal/cache"
	"github.com/SocketDev/socket-btm/internal/pb"
)

func TestMain(m *testing.M) {
	pb.SetDisableProgress(true)
	os.Exit(m.Run())
}

func TestFetchAllStagesAndPromotes(t *testing.T) {
	files := map[string]string{
		"/config.json": `{"model_type": "bert"}`,
		"/vocab.txt":   "[PAD]\n[UNK]\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(content))
	}))
	defer srv.Close()

	dir := t.TempDir()
	reqs := []Request{
		{URL: srv.URL + "/config.json", Dest: filepath.Join(dir, "config.json")},
		{URL: srv.URL + "/vocab.txt", Dest: filepath.Join(dir, "vocab.txt")},
	}

	f := New()
	require.NoError(t, f.FetchAll(context.Background(), "Fetching", reqs))

	// Staged, not yet promoted.
	for _, req := range reqs {
		assert.FileExists(t, req.Dest+PartialSuffix)
		assert.NoFileExists(t, req.Dest)
	}

	require.NoError(t, Promote(reqs[0].Dest, reqs[1].Dest))

	content, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"model_type": "bert"}`, string(content))
	assert.NoFileExists(t, reqs[0].Dest+PartialSuffix)
}

func TestFetchAllSendsHeaders(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	header := http.Header{}
	header.Set("Authorization", "Bearer secret")

	f := New()
	err := f.FetchAll(context.Background(), "Fetching", []Request{
		{URL: srv.URL + "/file", Dest: filepath.Join(dir, "file"), Header: header},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth.Load())
}

func TestFetchAllSkipsLedgerMatches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ledger, err := cache.New(dir)
	require.NoError(t, err)

	dest := filepath.Join(dir, "model.safetensors")
	reqs := []Request{{URL: srv.URL + "/model.safetensors", Dest: dest}}

	f := New(WithLedger(ledger))
	require.NoError(t, f.FetchAll(context.Background(), "Fetching", reqs))
	require.NoError(t, Promote(dest))
	require.EqualValues(t, 1, hits.Load())

	// The promoted file matches its ledger entry, so a rerun skips the fetch.
	require.NoError(t, f.FetchAll(context.Background(), "Fetching", reqs))
	assert.EqualValues(t, 1, hits.Load())

	// Changing the file on disk invalidates the entry.
	require.NoError(t, os.WriteFile(dest, []byte("tampered content"), 0644))
	require.NoError(t, f.FetchAll(context.Background(), "Fetching", reqs))
	require.NoError(t, Promote(dest))
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetchAllFailsOnNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "missing.bin")

	f := New()
	err := f.FetchAll(context.Background(), "Fetching", []Request{
		{URL: srv.URL + "/missing.bin", Dest: dest},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 404")
	assert.NoFileExists(t, dest+PartialSuffix)
}

func TestFetchAllRejectsShortFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "weights.bin")

	f := New()
	err := f.FetchAll(context.Background(), "Fetching", []Request{
		{URL: srv.URL + "/weights.bin", Dest: dest, Size: 1024},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short fetch")
}

func TestPromoteIgnoresMissingStaged(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "already-final.txt")
	require.NoError(t, os.WriteFile(dest, []byte("final"), 0644))

	require.NoError(t, Promote(dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "final", string(content))
}

func TestFetchAllHonorsRequestLimit(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	reqs := []Request{
		{URL: srv.URL + "/a", Dest: filepath.Join(dir, "a")},
		{URL: srv.URL + "/b", Dest: filepath.Join(dir, "b")},
		{URL: srv.URL + "/c", Dest: filepath.Join(dir, "c")},
	}

	f := New(WithRequestLimit(1000, 1))
	require.NoError(t, f.FetchAll(context.Background(), "Fetching", reqs))
	assert.EqualValues(t, 3, hits.Load())
}
