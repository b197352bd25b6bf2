package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
)

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <from> <to>",
		Short: "rename a namespace, carrying its overflow index records along",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := cat.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s -> %s\n", args[0], args[1])
			return cat.Sync()
		},
	}
}
