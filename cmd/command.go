// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"strings"

	"github.com/stackwatch/swiftmeter/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "swiftmeter",
	Short: "Swiftmeter - per-tenant object storage usage reports",
	Long: `Swiftmeter collects object storage usage statistics for every tenant
of a multi-tenant cloud in a single batch run: consumed bytes, container and
object counts, per-storage-policy breakdowns, and quota state.`,
	PersistentPreRun: initializeRun,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var verbosity int

func init() {
	rootCmd.PersistentFlags().String("config_dir", ".", "Directory for configuration files")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (repeatable)")
}

// initializeRun applies verbosity and loads the optional config file plus
// the standard OS_* environment variables into viper.
func initializeRun(cmd *cobra.Command, args []string) {
	logger.SetVerbosity(verbosity)

	configDir, _ := cmd.Flags().GetString("config_dir")
	viper.SetConfigName("swiftmeter")
	viper.AddConfigPath(configDir)
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warn().Err(err).Msg("failed to read config file")
		}
	}

	// OS_AUTH_URL, OS_USERNAME, ... as published by openrc files.
	viper.SetEnvPrefix("os")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"auth_url", "username", "password", "project_name", "domain_name"} {
		viper.BindEnv(key)
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
