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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SocketDev/socket-btm/pkg/pipeline"
)

// runCmd represents the minilm-builder command for run.
var runCmd = &cobra.Command{
	Use:                "run [flags] <plan.yaml>",
	Short:              "Run the full conversion pipeline described by a build plan",
	Args:               cobra.ExactArgs(1),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(context.Background(), args[0])
	},
}

// init initializes run command.
func init() {
	flags := runCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind run flags to viper: %w", err))
	}
}

// runPipeline loads the plan and drives the five stages as child
// processes, threading the persistent flags down to them.
func runPipeline(ctx context.Context, planPath string) error {
	plan, err := pipeline.LoadPlan(planPath)
	if err != nil {
		return err
	}

	extra := []string{
		"--storage-dir", rootConfig.StorageDir,
		"--log-dir", rootConfig.LogDir,
		"--log-level", rootConfig.LogLevel,
		"--python", rootConfig.Python,
	}
	if rootConfig.DisableProgress {
		extra = append(extra, "--no-progress")
	}

	invoker, err := pipeline.NewExecInvoker(extra...)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(invoker)
	if _, err := runner.Run(ctx, plan); err != nil {
		return err
	}

	fmt.Printf("Successfully converted %s: %s\n", plan.Model, plan.QuantizedModelPath())
	return nil
}
