package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nscat/pkg/catalog"
	"nscat/pkg/fieldrange"
	"nscat/pkg/queryplan"
)

// newRaceCmd builds and prints the PlanSet BuildPlanSet would race for a
// query touching the given fields, without actually executing it: this
// module defines the QueryOp/Cursor contracts a real storage engine would
// satisfy, but does not implement one, so "race" here is diagnostic —
// showing which candidates would be constructed and raced, per spec.md
// §4.5 steps 1-4.
func newRaceCmd() *cobra.Command {
	var hint string
	var fields []string

	cmd := &cobra.Command{
		Use:   "race <namespace>",
		Short: "show which plans would be raced for a query touching the given fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := args[0]

			cat, err := catalog.Open(catPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			rec, _, err := cat.Get(ns)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("namespace not found: %s", ns)
			}

			it := catalog.NewIndexIterator(cat, rec)
			infos := make([]queryplan.IndexInfo, it.Len())
			for i := 0; i < it.Len(); i++ {
				d := it.At(i)
				infos[i] = queryplan.IndexInfo{No: i, Name: d.Name(), KeyPattern: d.KeyPattern()}
			}

			ranges := &fieldrange.Set{NS: ns, Ranges: make(map[string]fieldrange.FieldRange, len(fields))}
			for _, f := range fields {
				ranges.Ranges[f] = fieldrange.FieldRange{Field: f}
			}

			ps, err := queryplan.BuildPlanSet(queryplan.BuildParams{
				NS:      ns,
				Hint:    hint,
				Ranges:  ranges,
				Indexes: infos,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ps.UsingPrerecordedPlan {
				fmt.Fprintln(out, "(using a prerecorded plan from the transient plan cache)")
			}
			for i, p := range ps.Plans {
				label := "collection scan"
				if !p.IsCollectionScan() {
					label = fmt.Sprintf("index[%d] %s", p.IndexNo, describeKeyPattern(infos, p.IndexNo))
				}
				fmt.Fprintf(out, "%d: %s\n", i, label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "force a single candidate by index name")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "a query field to narrow the candidate indexes by (repeatable)")
	return cmd
}

func describeKeyPattern(infos []queryplan.IndexInfo, no int) string {
	for _, d := range infos {
		if d.No == no {
			return strings.Join(d.KeyPattern, ",")
		}
	}
	return ""
}
