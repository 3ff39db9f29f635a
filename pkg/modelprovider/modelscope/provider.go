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

package modelscope

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/SocketDev/socket-btm/internal/transfer"
)

// Provider implements the modelprovider.Provider interface for ModelScope
// using the hub's HTTP API directly, with no CLI dependency.
type Provider struct {
	baseURL string
	client  *http.Client
	fetcher *transfer.Fetcher
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a different hub endpoint, mainly for
// tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// New creates a new ModelScope provider instance
func New(fetcher *transfer.Fetcher, opts ...Option) *Provider {
	p := &Provider{
		baseURL: modelScopeBaseURL,
		client:  &http.Client{},
		fetcher: fetcher,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		p.fetcher = transfer.New()
	}

	return p
}

// Name returns the name of this provider
func (p *Provider) Name() string {
	return "modelscope"
}

// SupportsURL checks if this provider can handle the given URL
// It only supports full ModelScope URLs with the modelscope.cn domain
// For short-form repo identifiers (owner/repo), users must explicitly specify --provider modelscope
func (p *Provider) SupportsURL(url string) bool {
	url = strings.TrimSpace(url)

	// Only support full ModelScope URLs
	return strings.Contains(url, "modelscope.cn")
}

// ListFiles resolves the model URL against the hub API and returns the
// repository's file names.
func (p *Provider) ListFiles(ctx context.Context, modelURL string) ([]string, error) {
	owner, repo, err := parseModelURL(modelURL)
	if err != nil {
		return nil, err
	}

	return p.listFiles(ctx, owner, repo)
}

// Fetch downloads the named repository files into destDir, staged for
// later promotion.
func (p *Provider) Fetch(ctx context.Context, modelURL string, names []string, destDir string) error {
	owner, repo, err := parseModelURL(modelURL)
	if err != nil {
		return err
	}

	header := authHeader()
	reqs := make([]transfer.Request, 0, len(names))
	for _, name := range names {
		reqs = append(reqs, transfer.Request{
			// Format: https://modelscope.cn/api/v1/models/{owner}/{repo}/repo?FilePath={filename}
			URL:    fmt.Sprintf("%s/api/v1/models/%s/%s/repo?FilePath=%s", p.baseURL, owner, repo, url.QueryEscape(name)),
			Dest:   filepath.Join(destDir, name),
			Header: header,
		})
	}

	return p.fetcher.FetchAll(ctx, fmt.Sprintf("Fetching %s", repo), reqs)
}

// CheckAuth verifies that a ModelScope token is available
func (p *Provider) CheckAuth(ctx context.Context) error {
	return checkModelScopeAuth()
}
