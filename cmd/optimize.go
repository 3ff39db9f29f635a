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
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SocketDev/socket-btm/pkg/pytool"
	"github.com/SocketDev/socket-btm/pkg/stage"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// optimizeCmd represents the minilm-builder command for optimize.
var optimizeCmd = &cobra.Command{
	Use:                "optimize <model_path> <output_path> <num_heads> <hidden_size>",
	Short:              "Rewrite an ONNX graph with transformer fusion passes",
	Args:               cobra.ExactArgs(4),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		numHeads, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid head count %q: %w", args[2], err)
		}
		hiddenSize, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid hidden size %q: %w", args[3], err)
		}

		return runOptimize(context.Background(), args[0], args[1], numHeads, hiddenSize)
	},
}

// init initializes optimize command.
func init() {
	flags := optimizeCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind optimize flags to viper: %w", err))
	}
}

// runOptimize runs the optimize stage.
func runOptimize(ctx context.Context, modelPath, outputPath string, numHeads, hiddenSize int) error {
	tool := pytool.New(rootConfig.Python)
	s := stage.NewOptimize(tool, modelPath, outputPath, numHeads, hiddenSize)
	return stage.Run(ctx, s, status.NewReporter(os.Stdout))
}
