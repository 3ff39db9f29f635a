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

	"github.com/SocketDev/socket-btm/pkg/onnxrt"
)

// setupCmd represents the minilm-builder command for setup.
var setupCmd = &cobra.Command{
	Use:                "setup [flags]",
	Short:              "Download and install the ONNX Runtime shared library",
	Args:               cobra.NoArgs,
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(context.Background())
	},
}

// init initializes setup command.
func init() {
	flags := setupCmd.Flags()

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Errorf("bind setup flags to viper: %w", err))
	}
}

// runSetup runs the setup command.
func runSetup(ctx context.Context) error {
	libPath, err := onnxrt.Install(ctx, rootConfig.StorageDir)
	if err != nil {
		return err
	}

	fmt.Printf("Successfully installed onnxruntime %s: %s\n", onnxrt.Version, libPath)
	return nil
}
