package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/graph"
)

var (
	classifySource    string
	classifyMinWeight float64
	classifyOnlyAsym  bool
)

func init() {
	addSourceFlags(classifyCmd, &classifySource, &classifyMinWeight)
	classifyCmd.Flags().BoolVar(&classifyOnlyAsym, "asymmetric", false, "Only list asymmetric edges")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify edges as symmetric or asymmetric",
	Long: `List every edge with its directional counts, whether it is asymmetric
and, if so, which side dominates.

An edge is asymmetric when the larger count is at least three times the
smaller one (the smaller count is floored at one). The dominant side is
the one more than twice the other.`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	src := mustResolveSource(classifySource)
	snap, err := src.Fetch(context.Background(), effectiveMinWeight(cmd, classifyMinWeight))
	if err != nil {
		exitWithError(fetchExitCode(err), "fetching snapshot: %v", err)
	}

	edges := snap.ClassifyEdges()
	if classifyOnlyAsym {
		kept := edges[:0]
		for _, e := range edges {
			if e.Asymmetric {
				kept = append(kept, e)
			}
		}
		edges = kept
	}

	if !humanOutput {
		return outputJSON(edges)
	}
	if len(edges) == 0 {
		outputHuman("No edges\n")
		return nil
	}
	rows := make([][]string, 0, len(edges))
	asym := 0
	for _, e := range edges {
		shape := "symmetric"
		if e.Asymmetric {
			shape = warnStyle.Sprint("asymmetric")
			asym++
		}
		rows = append(rows, []string{
			e.ID,
			formatWeight(e.Weight),
			fmt.Sprintf("%d", e.AToB),
			fmt.Sprintf("%d", e.BToA),
			shape,
			arrow(e.Dominant),
		})
	}
	fmt.Print(formatTable([]string{"EDGE", "WEIGHT", "A→B", "B→A", "SHAPE", "DOMINANT"}, rows))
	outputHuman("\n%d of %d edges asymmetric\n", asym, len(edges))
	return nil
}

func arrow(d graph.Direction) string {
	switch d {
	case graph.DirectionAToB:
		return "→"
	case graph.DirectionBToA:
		return "←"
	case graph.DirectionBalanced:
		return "↔"
	default:
		return ""
	}
}
