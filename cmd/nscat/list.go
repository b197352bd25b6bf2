package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
)

func newListCmd() *cobra.Command {
	var onlyCollections bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list live namespace names in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			for _, ns := range cat.ListNames(onlyCollections) {
				fmt.Fprintln(cmd.OutOrStdout(), ns)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyCollections, "collections-only", false,
		"exclude the catalog's own overflow bookkeeping slots and other $-qualified names")
	return cmd
}
