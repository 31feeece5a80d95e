package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/cluster"
	"github.com/matsen/relgraph/internal/graph"
)

var (
	clustersSource    string
	clustersMinWeight float64
)

func init() {
	addSourceFlags(clustersCmd, &clustersSource, &clustersMinWeight)
	rootCmd.AddCommand(clustersCmd)
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List clusters with their colors and sizes",
	Long: `List clusters in color order with the palette color each one is drawn
with and the number of nodes it contains. Colors do not change when a
cluster filter is applied.`,
	RunE: runClusters,
}

// ClusterInfo is one row of the clusters command.
type ClusterInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
	Nodes int    `json:"nodes"`
}

// clusterInfos lists the clusters of snap in color order.
func clusterInfos(snap *graph.Snapshot) []ClusterInfo {
	colors := cluster.AssignColors(snap)
	counts := cluster.Counts(snap)
	labels := make(map[string]string)
	if snap != nil {
		for _, c := range snap.Clusters {
			labels[c.ID] = c.Label
		}
	}

	out := make([]ClusterInfo, 0, len(colors.Order()))
	for _, id := range colors.Order() {
		label := labels[id]
		if label == "" {
			label = id
		}
		out = append(out, ClusterInfo{
			ID:    id,
			Label: label,
			Color: colors.Color(id),
			Nodes: counts[id],
		})
	}
	return out
}

func runClusters(cmd *cobra.Command, args []string) error {
	src := mustResolveSource(clustersSource)
	snap, err := src.Fetch(context.Background(), effectiveMinWeight(cmd, clustersMinWeight))
	if err != nil {
		exitWithError(fetchExitCode(err), "fetching snapshot: %v", err)
	}

	infos := clusterInfos(snap)
	if !humanOutput {
		return outputJSON(infos)
	}
	if len(infos) == 0 {
		outputHuman("No clusters\n")
		return nil
	}
	rows := make([][]string, 0, len(infos))
	for _, c := range infos {
		rows = append(rows, []string{c.ID, c.Label, c.Color, fmt.Sprintf("%d", c.Nodes)})
	}
	fmt.Print(formatTable([]string{"CLUSTER", "LABEL", "COLOR", "NODES"}, rows))
	return nil
}
