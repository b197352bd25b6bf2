package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
)

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <namespace>",
		Short: "remove a namespace's catalog entry and its overflow slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := args[0]

			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := cat.Kill(ns); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "killed %s\n", ns)
			return cat.Sync()
		},
	}
}
