package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/viz"
)

// Output formats for the viz command.
const (
	FormatHTML = "html"
	FormatSVG  = "svg"
)

var (
	vizOutput  string
	vizFormat  string
	vizOffline bool
	vizTitle   string
)

func init() {
	addLayoutFlags(vizCmd)
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "Output file path (default: stdout)")
	vizCmd.Flags().StringVar(&vizFormat, "format", FormatHTML, "Output format: html or svg")
	vizCmd.Flags().BoolVar(&vizOffline, "offline", false, "Draw an inline SVG instead of loading Cytoscape.js from a CDN")
	vizCmd.Flags().StringVar(&vizTitle, "title", "", "Page title")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Render the settled layout",
	Long: `Settle the layout headlessly and render it as an HTML page or a static SVG.

Nodes are colored by cluster, edge width follows weight and asymmetric edges
carry an arrow toward the dominant side.

Examples:
  # Generate HTML to stdout
  relgraph viz > graph.html

  # One cluster as SVG
  relgraph viz --format svg --cluster eng --output eng.svg

  # Generate offline-capable HTML
  relgraph viz --offline --output graph.html`,
	RunE: runViz,
}

// renderScene renders scene in format.
func renderScene(scene *viz.Scene, format string, opts viz.HTMLOptions) (string, error) {
	switch format {
	case FormatHTML:
		return viz.GenerateHTML(scene, opts)
	case FormatSVG:
		var sb strings.Builder
		if err := viz.WriteSVG(&sb, scene); err != nil {
			return "", err
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown format %q: must be html or svg", format)
	}
}

func runViz(cmd *cobra.Command, args []string) error {
	if vizFormat != FormatHTML && vizFormat != FormatSVG {
		exitWithError(ExitError, "unknown format %q: must be html or svg", vizFormat)
	}
	res := mustRunHeadless(cmd)

	out, err := renderScene(&res.Scene, vizFormat, viz.HTMLOptions{
		Title:   vizTitle,
		Offline: vizOffline,
	})
	if err != nil {
		return fmt.Errorf("rendering %s: %w", vizFormat, err)
	}

	if vizOutput == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(vizOutput, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if !humanOutput {
		return outputJSON(StatusResponse{Status: string(res.State), Path: vizOutput})
	}
	outputHuman("Visualization written to %s\n", vizOutput)
	return nil
}
