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

// quantizeCmd represents the minilm-builder command for quantize.
var quantizeCmd = &cobra.Command{
	Use:                "quantize <model_dir> <output_dir>",
	Short:              "Apply dynamic uint8 quantization to an optimized graph",
	Args:               cobra.ExactArgs(2),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuantize(context.Background(), args[0], args[1])
	},
}

// init initializes quantize command.
func init() {
	flags := quantizeCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind quantize flags to viper: %w", err))
	}
}

// runQuantize runs the quantize stage.
func runQuantize(ctx context.Context, modelDir, outputDir string) error {
	tool := pytool.New(rootConfig.Python)
	s := stage.NewQuantize(tool, modelDir, outputDir)
	return stage.Run(ctx, s, status.NewReporter(os.Stdout))
}
