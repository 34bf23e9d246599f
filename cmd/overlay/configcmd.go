package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"overlay/internal/observability"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or persist the configuration",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.mgr.Path())
		},
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective settings, flags and environment included, to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.mgr.Save(); err != nil {
				return fmt.Errorf("config: save %s: %w", a.mgr.Path(), err)
			}
			observability.GetLogger().Info("Configuration saved", zap.String("path", a.mgr.Path()))
			fmt.Fprintln(cmd.OutOrStdout(), a.mgr.Path())
			return nil
		},
	}
	save.Flags().Uint32("width", 0, "render surface width in pixels")
	save.Flags().Uint32("height", 0, "render surface height in pixels")
	save.Flags().Uint32("flag", 0, "instance flag shared with the host")
	save.Flags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(path, save)
	return cmd
}
