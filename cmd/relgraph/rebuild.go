package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/config"
	"github.com/matsen/relgraph/internal/storage"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from source data",
	Long: `Rebuild the SQLite cache from the workspace JSONL files.

Use this after 'relgraph fetch --save', after pulling changes from git, or
if the cache becomes corrupted.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status   string `json:"status"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Clusters int    `json:"clusters"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()

	if err := config.InitWorkspace(root); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	defer db.Close()

	counts, err := db.RebuildFromJSONL(config.JSONLPaths(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}

	result := RebuildResult{
		Status:   "rebuilt",
		Nodes:    counts.Nodes,
		Edges:    counts.Edges,
		Clusters: counts.Clusters,
	}
	if humanOutput {
		outputHuman("%s Rebuilt cache: %d nodes, %d edges, %d clusters\n",
			goodStyle.Sprint("✓"), result.Nodes, result.Edges, result.Clusters)
		return nil
	}
	return outputJSON(result)
}
