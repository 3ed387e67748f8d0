// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/connectix/connectix/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a config file against the schema",
		Long: `Validate FILE (or --config) against the configuration schema, then
check the effective configuration including environment overrides.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigValidate,
	}
	config.RegisterFlags(validateCmd.Flags())
	cmd.AddCommand(validateCmd)

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigFile()
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags(), path)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return oops.With("operation", "encode config").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
	config.RegisterFlags(printCmd.Flags())
	cmd.AddCommand(printCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	return cmd
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		resolved, err := resolveConfigFile()
		if err != nil {
			return err
		}
		path = resolved
	}
	if path == "" {
		return oops.Code("CONFIG_INVALID").Errorf("no config file given")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
	}
	if err := config.ValidateSchema(data); err != nil {
		cmd.PrintErrln(config.FormatSchemaError(err))
		return err
	}

	cfg, err := config.Load(cmd.Flags(), path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cmd.Printf("%s is valid\n", path)
	return nil
}
