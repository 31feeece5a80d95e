package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/server"
)

var (
	serveAddr      string
	serveSource    string
	serveMinWeight float64
	serveTitle     string
)

func init() {
	addSourceFlags(serveCmd, &serveSource, &serveMinWeight)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, else 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&serveTitle, "title", "", "Page title for /viz")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph over HTTP and websockets",
	Long: `Start the host server.

Endpoints:
  GET /api/snapshot   snapshot JSON
  GET /api/layout     settled positions (min_weight, cluster, width, height)
  GET /api/classify   edge classifications
  GET /viz            HTML page of the settled layout
  GET /ws             live session (input, filter, resize, load messages)
  GET /metrics        Prometheus metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	src := mustResolveSource(serveSource)
	addr := serveAddr
	if addr == "" {
		addr = globalCfg.ListenAddrOrDefault()
	}

	srv := server.New(server.Config{
		MinWeight: effectiveMinWeight(cmd, serveMinWeight),
		Layout:    layoutConfig(),
		Title:     serveTitle,
	}, src, server.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if humanOutput {
		outputHuman("Serving on %s\n", keyStyle.Sprint("http://"+addr))
	}
	return srv.ListenAndServe(ctx, addr)
}
