package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/ayusman/fretsense/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath()
			if ctx.configFlag != nil && *ctx.configFlag != "" {
				path = *ctx.configFlag
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Printf("Wrote sample configuration to %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			enc := toml.NewEncoder(os.Stdout)
			enc.SetIndentTables(true)
			return enc.Encode(cfg)
		},
	})

	return cmd
}
