// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/essandess/blockfs/cfg"
	"github.com/essandess/blockfs/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	config  *cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "blockfs",
	Short: "Format, inspect and benchmark a blockfs storage engine image",
	Long: `blockfs drives the buffer-cache-and-inode storage engine directly
against a backing file, without a filesystem layer or mount point on top
of it.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file")
	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Sprintf("binding flags: %v", err))
	}

	rootCmd.AddCommand(formatCmd, statCmd, benchCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			cobra.CheckErr(fmt.Errorf("reading config file: %w", err))
		}
	}

	c, err := cfg.Decode(viper.GetViper())
	cobra.CheckErr(err)
	config = c

	logger.SetLogSeverity(config.Logging.Severity)
	logger.SetLogFormat(string(config.Logging.Format))
	if cfg.IsFileLoggingEnabled(config) {
		cobra.CheckErr(logger.InitLogFile(config.Logging))
	}
	if cfg.IsInvariantCheckingEnabled(config) {
		enableInvariantChecking(config)
	}
}
