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

// Package transfer fetches remote files over HTTP. Every file is staged
// next to its final destination with a .partial suffix, so an interrupted
// fetch never leaves a truncated file under the final name. Callers promote
// staged files once the whole batch has landed.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SocketDev/socket-btm/internal/cache"
	"github.com/SocketDev/socket-btm/internal/digest"
	"github.com/SocketDev/socket-btm/internal/pb"
)

const (
	// PartialSuffix marks a staged download that has not been promoted yet.
	PartialSuffix = ".partial"

	// DefaultConcurrency is the number of files fetched in parallel.
	DefaultConcurrency = 4
)

var retryOpts = []retry.Option{
	retry.Attempts(3),
	retry.DelayType(retry.BackOffDelay),
	retry.Delay(1 * time.Second),
	retry.MaxDelay(5 * time.Second),
}

// Request describes one file to fetch.
type Request struct {
	// URL is the remote location of the file.
	URL string

	// Dest is the final local path. The fetch stages data at
	// Dest+PartialSuffix and leaves promotion to the caller.
	Dest string

	// Size is the expected size in bytes, zero when unknown.
	Size int64

	// Header carries extra request headers such as authorization.
	Header http.Header
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency sets how many files are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithRequestLimit throttles outgoing requests to rps per second with the
// given burst.
func WithRequestLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLedger records fetched files in a ledger and skips files whose entry
// still matches the content on disk.
func WithLedger(l cache.Ledger) Option {
	return func(f *Fetcher) {
		f.ledger = l
	}
}

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// Fetcher downloads batches of files with bounded concurrency, retries and
// progress reporting.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	ledger      cache.Ledger
	concurrency int
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		limiter:     rate.NewLimiter(rate.Inf, 0),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FetchAll downloads every request, staging each file as Dest+PartialSuffix.
// Requests whose ledger entry still matches the file on disk are skipped.
// The prompt labels the progress bars.
func (f *Fetcher) FetchAll(ctx context.Context, prompt string, reqs []Request) error {
	bar := pb.NewProgressBar()
	defer bar.Stop()

	g := &errgroup.Group{}
	g.SetLimit(f.concurrency)
	for _, req := range reqs {
		req := req // capture per-iteration copy for the goroutine below
		g.Go(func() error { return f.fetch(ctx, bar, prompt, req) })
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fetch files: %w", err)
	}

	return nil
}

// fetch downloads a single request with retries.
func (f *Fetcher) fetch(ctx context.Context, bar *pb.ProgressBar, prompt string, req Request) error {
	if f.cached(ctx, req) {
		logrus.Infof("transfer: skipped cached file [path: %s, source: %s]", req.Dest, req.URL)
		return nil
	}

	return retry.Do(func() error {
		return f.fetchOnce(ctx, bar, prompt, req)
	}, append(retryOpts, retry.Context(ctx))...)
}

// cached reports whether the destination file already matches its ledger
// entry for the same source.
func (f *Fetcher) cached(ctx context.Context, req Request) bool {
	if f.ledger == nil {
		return false
	}

	entry, err := f.ledger.Get(ctx, req.Dest)
	if err != nil || entry.Source != req.URL {
		return false
	}

	info, err := os.Stat(req.Dest)
	if err != nil {
		return false
	}

	return entry.Matches(info)
}

// fetchOnce performs one fetch attempt.
func (f *Fetcher) fetchOnce(ctx context.Context, bar *pb.ProgressBar, prompt string, req Request) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s, status code: %d", req.URL, resp.StatusCode)
	}

	size := req.Size
	if size <= 0 && resp.ContentLength > 0 {
		size = resp.ContentLength
	}

	name := filepath.Base(req.Dest)
	reader := bar.Add(pb.NormalizePrompt(prompt), name, size, resp.Body)

	staging := req.Dest + PartialSuffix
	if err := os.MkdirAll(filepath.Dir(staging), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	written, err := writeFile(staging, reader)
	if err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to write %s: %w", staging, err)
	}

	if req.Size > 0 && written != req.Size {
		os.Remove(staging)
		return fmt.Errorf("short fetch for %s: got %d bytes, want %d", name, written, req.Size)
	}

	bar.Complete(name, fmt.Sprintf("%s fetched %s", pb.NormalizePrompt(prompt), name))
	f.record(ctx, req, staging)

	return nil
}

// writeFile copies reader into path and returns the number of bytes written.
func writeFile(path string, reader io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	return written, err
}

// record writes the ledger entry for a staged file, keyed by the final
// destination path. A rename promotion preserves size and mtime, so the
// entry matches the promoted file too. Best effort.
func (f *Fetcher) record(ctx context.Context, req Request, staging string) {
	if f.ledger == nil {
		return
	}

	info, err := os.Stat(staging)
	if err != nil {
		return
	}

	dgst, _, err := digest.FromFile(staging)
	if err != nil {
		logrus.Debugf("transfer: failed to digest %s: %v", staging, err)
		return
	}

	entry := &cache.Entry{
		Path:      req.Dest,
		Source:    req.URL,
		ModTime:   info.ModTime(),
		Size:      info.Size(),
		Digest:    dgst,
		CreatedAt: time.Now(),
	}

	if err := f.ledger.Put(ctx, entry); err != nil {
		logrus.Warnf("transfer: failed to record ledger entry [path: %s]: %v", req.Dest, err)
	}
}

// Promote renames staged files into their final place. Destinations with no
// staged counterpart are left untouched, which covers fetches skipped by the
// ledger.
func Promote(dests ...string) error {
	for _, dest := range dests {
		staging := dest + PartialSuffix
		if _, err := os.Stat(staging); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", staging, err)
		}

		if err := os.Rename(staging, dest); err != nil {
			return fmt.Errorf("failed to promote %s: %w", dest, err)
		}
	}

	return nil
}
