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

	"github.com/SocketDev/socket-btm/pkg/stage"
	"github.com/SocketDev/socket-btm/pkg/status"
)

// verifyCmd represents the minilm-builder command for verify.
var verifyCmd = &cobra.Command{
	Use:                "verify <model_path> <tokenizer_path> [probe_text]",
	Short:              "Run a probe sentence through the converted model and report activation statistics",
	Args:               cobra.RangeArgs(2, 3),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		probeText := ""
		if len(args) == 3 {
			probeText = args[2]
		}

		return runVerify(context.Background(), args[0], args[1], probeText)
	},
}

// init initializes verify command.
func init() {
	flags := verifyCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind verify flags to viper: %w", err))
	}
}

// runVerify runs the verify stage.
func runVerify(ctx context.Context, modelPath, tokenizerPath, probeText string) error {
	s := stage.NewVerify(rootConfig.StorageDir, modelPath, tokenizerPath, probeText)
	return stage.Run(ctx, s, status.NewReporter(os.Stdout))
}
