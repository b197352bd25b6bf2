package main

import (
	"github.com/spf13/cobra"

	"nscat/pkg/config"
	"nscat/pkg/logging"
)

var (
	configPath string
	catPath    string
)

func newRootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:           "nscat",
		Short:         "namespace catalog inspection and exercise tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to engine config YAML (defaults built in if omitted)")
	root.PersistentFlags().StringVar(&catPath, "catalog", "nscat.ns", "path to the catalog's mapping file")

	root.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newGetCmd(),
		newKillCmd(),
		newListCmd(),
		newRenameCmd(),
		newRaceCmd(),
	)
	return root
}

func loadConfig() (*config.Engine, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func initLogging(cfg *config.Engine) {
	_ = logging.Init(logging.Config{
		Level:      logging.Level(cfg.Logging.Level),
		OutputPath: cfg.Logging.OutputPath,
		Format:     cfg.Logging.Format,
	})
}
