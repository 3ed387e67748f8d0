// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/connectix/connectix/internal/xdg"
)

// serviceName tags every log line and metric namespace.
const serviceName = "connectix"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Connectix CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connectix",
		Short: "Connectix - account backend for the Connectix music network",
		Long: `Connectix serves the account API: multi-step registration with email
verification, login with optional TOTP two-factor authentication, and
password recovery.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// resolveConfigFile returns --config, or the XDG default file when it exists.
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.ConfigFile()
}
