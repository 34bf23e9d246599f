package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"overlay/internal/config"
	"overlay/internal/observability"
)

// app carries what the persistent pre-run prepares for subcommands.
type app struct {
	cfgFile string
	mgr     *config.Manager
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "overlay",
		Short:         "Overlay renderer for a hooked host window.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := config.NewManager(a.cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(cmd, mgr); err != nil {
				return err
			}
			if err := mgr.Load(); err != nil {
				// Still log somewhere before failing.
				observability.InitializeLogger(config.NewDefaultConfig().Logger)
				return err
			}
			a.mgr = mgr

			observability.InitializeLogger(mgr.Get().Logger)
			observability.GetLogger().Debug("Configuration loaded",
				zap.String("path", mgr.Path()), zap.String("version", Version))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is the per-user overlay/config.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newRendererCmd(a), newConfigCmd(a), newVersionCmd())
	return root
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"width":     "overlay.width",
	"height":    "overlay.height",
	"flag":      "overlay.flag",
	"plugins":   "overlay.plugins",
	"tray":      "overlay.tray",
	"log-level": "logger.level",
}

func bindFlags(cmd *cobra.Command, mgr *config.Manager) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := mgr.Viper().BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
