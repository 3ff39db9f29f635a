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

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SocketDev/socket-btm/internal/cache"
	"github.com/SocketDev/socket-btm/internal/transfer"
	"github.com/SocketDev/socket-btm/pkg/config"
	"github.com/SocketDev/socket-btm/pkg/modelprovider"
	"github.com/SocketDev/socket-btm/pkg/stage"
	"github.com/SocketDev/socket-btm/pkg/status"
)

var downloadConfig = config.NewDownload()

// downloadCmd represents the minilm-builder command for download.
var downloadCmd = &cobra.Command{
	Use:                "download [flags] <model> <cache_dir>",
	Short:              "Fetch a pretrained checkpoint and its tokenizer into the cache directory",
	Args:               cobra.ExactArgs(2),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(context.Background(), args[0], args[1])
	},
}

// init initializes download command.
func init() {
	flags := downloadCmd.Flags()
	flags.StringVar(&downloadConfig.Provider, "provider", "", "pin the hub source (huggingface, modelscope, s3) instead of detecting it from the model URL")
	flags.StringArrayVar(&downloadConfig.Include, "include", nil, "repository path patterns to fetch, overriding the defaults")
	flags.StringArrayVar(&downloadConfig.Exclude, "exclude", nil, "repository path patterns to skip, overriding the defaults")
	flags.IntVar(&downloadConfig.Concurrency, "concurrency", downloadConfig.Concurrency, "number of concurrent file fetches")
	flags.Float64Var(&downloadConfig.RequestRate, "request-rate", downloadConfig.RequestRate, "maximum hub requests per second, 0 means unlimited")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind download flags to viper: %w", err))
	}
}

// runDownload runs the download stage.
func runDownload(ctx context.Context, model, cacheDir string) error {
	if err := downloadConfig.Validate(); err != nil {
		return err
	}

	filter, err := downloadConfig.PathFilter()
	if err != nil {
		return err
	}

	opts := []transfer.Option{transfer.WithConcurrency(downloadConfig.Concurrency)}
	if downloadConfig.RequestRate > 0 {
		opts = append(opts, transfer.WithRequestLimit(downloadConfig.RequestRate, downloadConfig.Concurrency))
	}
	if ledger, err := cache.New(rootConfig.StorageDir); err != nil {
		logrus.Warnf("download: ledger unavailable, refetching everything: %v", err)
	} else {
		opts = append(opts, transfer.WithLedger(ledger))
	}

	fetcher := transfer.New(opts...)
	registry := modelprovider.NewRegistry(fetcher)
	selector := func(modelURL, sourceName string) (stage.Source, error) {
		return registry.SelectProvider(modelURL, sourceName)
	}

	s := stage.NewDownload(selector, model, downloadConfig.Provider, cacheDir, stage.WithPathFilter(filter))
	return stage.Run(ctx, s, status.NewReporter(os.Stdout))
}
