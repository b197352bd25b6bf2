package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace>",
		Short: "print a namespace's catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := args[0]

			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			rec, idx, err := cat.Get(ns)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("namespace not found: %s", ns)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ns:             %s\n", ns)
			fmt.Fprintf(out, "slot:           %d\n", idx)
			fmt.Fprintf(out, "capped:         %v\n", rec.Capped)
			fmt.Fprintf(out, "max:            %d\n", rec.Max)
			fmt.Fprintf(out, "n_records:      %d\n", rec.NRecords)
			fmt.Fprintf(out, "data_size:      %d\n", rec.DataSize)
			fmt.Fprintf(out, "n_indexes:      %d\n", rec.NIndexes)
			fmt.Fprintf(out, "padding_factor: %g\n", rec.PaddingFactor)

			it := catalog.NewIndexIterator(cat, rec)
			for i := 0; i < it.Len(); i++ {
				idesc := it.At(i)
				fmt.Fprintf(out, "index[%d]:       %s %v\n", i, idesc.Name(), idesc.KeyPattern())
			}
			return nil
		},
	}
}
