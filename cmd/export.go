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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SocketDev/socket-btm/pkg/pytool"
	"github.com/SocketDev/socket-btm/pkg/stage"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// exportCmd represents the minilm-builder command for export.
var exportCmd = &cobra.Command{
	Use:                "export <source_dir> <output_dir>",
	Short:              "Export a downloaded checkpoint to an ONNX graph",
	Args:               cobra.ExactArgs(2),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(context.Background(), args[0], args[1])
	},
}

// init initializes export command.
func init() {
	flags := exportCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind export flags to viper: %w", err))
	}
}

// runExport runs the export stage.
func runExport(ctx context.Context, sourceDir, outputDir string) error {
	tool := pytool.New(rootConfig.Python)
	s := stage.NewExport(tool, sourceDir, outputDir)
	return stage.Run(ctx, s, status.NewReporter(os.Stdout))
}
