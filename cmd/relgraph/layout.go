package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/layout"
	"github.com/matsen/relgraph/internal/session"
)

var (
	layoutSource    string
	layoutMinWeight float64
	layoutCluster   string
	layoutWidth     float64
	layoutHeight    float64
	layoutSeed      int64
)

// addLayoutFlags registers the flags shared by layout and viz.
func addLayoutFlags(cmd *cobra.Command) {
	addSourceFlags(cmd, &layoutSource, &layoutMinWeight)
	cmd.Flags().StringVar(&layoutCluster, "cluster", "", "Only lay out nodes of this cluster")
	cmd.Flags().Float64Var(&layoutWidth, "width", 0, "Surface width (default from config, else 800)")
	cmd.Flags().Float64Var(&layoutHeight, "height", 0, "Surface height (default from config, else 600)")
	cmd.Flags().Int64Var(&layoutSeed, "seed", 0, "Seed for the initial placement jitter")
}

func init() {
	addLayoutFlags(layoutCmd)
	rootCmd.AddCommand(layoutCmd)
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Compute a settled layout",
	Long: `Run the force-directed layout headlessly until it settles and print the
final node positions.

Examples:
  relgraph layout --human
  relgraph layout --source cache --cluster eng --width 1200 --height 800`,
	RunE: runLayout,
}

// LayoutResult is the response for the layout command.
type LayoutResult struct {
	State     session.State     `json:"state"`
	Settled   bool              `json:"settled"`
	Reason    string            `json:"reason,omitempty"`
	Ticks     int               `json:"ticks"`
	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Positions []layout.Position `json:"positions"`
}

// layoutConfig merges the global layout block with the command flags.
func layoutConfig() layout.Config {
	cfg, err := globalCfg.LayoutConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if layoutWidth > 0 {
		cfg.Width = layoutWidth
	}
	if layoutHeight > 0 {
		cfg.Height = layoutHeight
	}
	if layoutSeed != 0 {
		cfg.Seed = layoutSeed
	}
	return cfg
}

// mustRunHeadless resolves the source and settles the layout, exiting on
// configuration or fetch errors.
func mustRunHeadless(cmd *cobra.Command) *session.Result {
	if layoutWidth < 0 || layoutHeight < 0 {
		exitWithError(ExitError, "--width and --height must be positive")
	}
	src := mustResolveSource(layoutSource)
	res, err := session.RunHeadless(context.Background(), src, session.HeadlessOptions{
		MinWeight: effectiveMinWeight(cmd, layoutMinWeight),
		Cluster:   layoutCluster,
		Layout:    layoutConfig(),
		Logger:    logger,
	})
	if err != nil {
		exitWithError(fetchExitCode(err), "fetching snapshot: %v", err)
	}
	return res
}

func runLayout(cmd *cobra.Command, args []string) error {
	res := mustRunHeadless(cmd)

	result := LayoutResult{
		State:     res.State,
		Settled:   res.Settled,
		Reason:    res.Reason,
		Ticks:     res.Ticks,
		Width:     res.Scene.Width,
		Height:    res.Scene.Height,
		Positions: res.Positions,
	}
	if result.Positions == nil {
		result.Positions = []layout.Position{}
	}

	if !humanOutput {
		return outputJSON(result)
	}
	if res.State == session.StateEmpty {
		outputHuman("%s No nodes to lay out\n", warnStyle.Sprint("!"))
		return nil
	}
	status := goodStyle.Sprint("settled")
	if !res.Settled {
		status = warnStyle.Sprint("not settled")
	}
	outputHuman("Layout %s after %d ticks (%s)\n\n", status, res.Ticks, res.Reason)
	rows := make([][]string, 0, len(res.Positions))
	for _, p := range res.Positions {
		pinned := ""
		if p.Pinned {
			pinned = "pinned"
		}
		rows = append(rows, []string{p.ID, fmt.Sprintf("%.1f", p.X), fmt.Sprintf("%.1f", p.Y), pinned})
	}
	fmt.Print(formatTable([]string{"NODE", "X", "Y", ""}, rows))
	return nil
}
