package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create (or open) the catalog's mapping file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			initLogging(cfg)

			cat, err := catalog.Init(cfg, catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "catalog ready at %s (capacity=%d, buckets=%d)\n",
				catPath, cat.Capacity(), len(cat.BucketSizes()))
			return nil
		},
	}
}
