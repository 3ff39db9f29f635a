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
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/internal/transfer"
	"github.com/SocketDev/socket-btm/pkg/artifact"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// Source lists and fetches a model repository's files, satisfied by the
// modelprovider implementations.
type Source interface {
	// Name returns the source name.
	Name() string

	// ListFiles resolves the model URL and returns the repository's file
	// names.
	ListFiles(ctx context.Context, modelURL string) ([]string, error)

	// Fetch downloads the named files into destDir, staged for promotion.
	Fetch(ctx context.Context, modelURL string, names []string, destDir string) error

	// CheckAuth verifies hub credentials.
	CheckAuth(ctx context.Context) error
}

// SourceSelector picks the hub source for a model URL, with an optional
// explicit source name overriding URL-based detection. Satisfied by
// modelprovider.Registry.SelectProvider.
type SourceSelector func(modelURL, sourceName string) (Source, error)

// Download fetches the pretrained checkpoint and tokenizer files from a
// model hub into the local cache directory. Unlike the later stages it
// speaks the hub protocols natively and has no Python collaborator.
type Download struct {
	selector   SourceSelector
	modelURL   string
	sourceName string
	cacheDir   string
	filter     *artifact.PathFilter

	// source is bound by Resolve.
	source Source
}

// DownloadOption configures the download stage.
type DownloadOption func(*Download)

// WithPathFilter replaces the default repository path filter.
func WithPathFilter(filter *artifact.PathFilter) DownloadOption {
	return func(d *Download) {
		d.filter = filter
	}
}

// NewDownload creates the download stage fetching modelURL into cacheDir.
// A non-empty sourceName pins the hub source instead of detecting it from
// the URL.
func NewDownload(selector SourceSelector, modelURL, sourceName, cacheDir string, opts ...DownloadOption) *Download {
	d := &Download{
		selector:   selector,
		modelURL:   modelURL,
		sourceName: sourceName,
		cacheDir:   cacheDir,
		filter:     artifact.DefaultPathFilter(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the stage name.
func (d *Download) Name() string {
	return "download"
}

// Resolve binds the hub source for the model URL. Missing credentials only
// warn, public repositories fetch without them.
func (d *Download) Resolve(ctx context.Context) error {
	source, err := d.selector(d.modelURL, d.sourceName)
	if err != nil {
		logrus.Errorf("download: source selection failed: %v", err)
		return DependencyMissing(err.Error())
	}
	d.source = source

	if err := source.CheckAuth(ctx); err != nil {
		logrus.Warnf("download: %v", err)
	}

	logrus.Infof("download: resolved source [source: %s, model: %s]", source.Name(), d.modelURL)
	return nil
}

// Inputs declares no local inputs, the stage reads only from the hub.
func (d *Download) Inputs() []string {
	return nil
}

// OutputDir declares the cache directory.
func (d *Download) OutputDir() string {
	return d.cacheDir
}

// Execute lists the repository, partitions its files into model and
// tokenizer artifacts, fetches each group staged, then promotes them into
// the cache directory.
func (d *Download) Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error) {
	names, err := d.source.ListFiles(ctx, d.modelURL)
	if err != nil {
		return nil, err
	}

	set := artifact.NewSet()
	for _, name := range names {
		if !d.filter.Match(name) {
			logrus.Debugf("download: filtered out %s", name)
			continue
		}
		set.Add(name)
	}

	modelFiles := set.Model()
	tokenizerFiles := set.Tokenizer()

	if len(modelFiles) == 0 {
		return nil, fmt.Errorf("repository %s offers no model files", d.modelURL)
	}

	rep.Progress("downloading_model")
	if err := d.source.Fetch(ctx, d.modelURL, modelFiles, d.cacheDir); err != nil {
		return nil, err
	}

	rep.Progress("downloading_tokenizer")
	if err := d.source.Fetch(ctx, d.modelURL, tokenizerFiles, d.cacheDir); err != nil {
		return nil, err
	}

	rep.Progress("saving_model")
	if err := transfer.Promote(d.dests(modelFiles)...); err != nil {
		return nil, err
	}

	rep.Progress("saving_tokenizer")
	if err := transfer.Promote(d.dests(tokenizerFiles)...); err != nil {
		return nil, err
	}

	return status.Fields{"cache_dir": d.cacheDir}, nil
}

// dests maps repository file names to their final cache paths.
func (d *Download) dests(names []string) []string {
	dests := make([]string, len(names))
	for i, name := range names {
		dests[i] = filepath.Join(d.cacheDir, name)
	}
	return dests
}
