package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
	"nscat/pkg/nsname"
)

func newAddCmd() *cobra.Command {
	var capped bool
	var maxObjects int64

	cmd := &cobra.Command{
		Use:   "add <namespace>",
		Short: "create a new namespace's catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := args[0]
			if err := nsname.Validate(ns); err != nil {
				return err
			}

			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			rec := catalog.NewRecord(capped, maxObjects)
			b, err := rec.MarshalBinary()
			if err != nil {
				return err
			}
			idx, err := cat.Add(ns, b)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s at slot %d\n", ns, idx)
			return cat.Sync()
		},
	}

	cmd.Flags().BoolVar(&capped, "capped", false, "create a capped collection")
	cmd.Flags().Int64Var(&maxObjects, "max", 0, "maximum object count for a capped collection (0 = unbounded)")
	return cmd
}
