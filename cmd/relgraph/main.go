// Package main provides the relgraph CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/config"
	"github.com/matsen/relgraph/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	logLevel    string
	configPath  string

	globalCfg *config.GlobalConfig
	logger    = logging.Discard()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "relgraph",
	Short: "Force-directed relationship graph toolkit",
	Long: `relgraph lays out weighted, directional relationship graphs.

Core features:
  - Fetch node/edge/cluster snapshots from the graph API
  - Keep a git-versionable JSONL workspace with an ephemeral SQLite cache
  - Settle a force-directed layout headlessly and render it as HTML or SVG
  - Classify edges as symmetric or asymmetric
  - Serve an interactive live view over websockets

All commands output JSON by default for scripting.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the global config file")
	rootCmd.Version = Version
}

// setup loads .env files and the global config, then builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if cwd, err := os.Getwd(); err == nil {
		if err := config.LoadEnv(cwd); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}

	var err error
	if configPath != "" {
		globalCfg, err = config.LoadGlobalConfigFrom(config.ExpandPath(configPath))
	} else {
		globalCfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	levelName := globalCfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	logger = logging.New(logging.Config{
		Level:   level,
		Service: cmd.Name(),
		Writer:  os.Stderr,
	})
	slog.SetDefault(logger)
	return nil
}

// getStartingDirectory returns the directory to start searching for a workspace.
// Checks global config workspace_path first, then current working directory.
func getStartingDirectory() (string, int) {
	if globalCfg != nil && globalCfg.WorkspacePath != "" {
		return globalCfg.WorkspacePath, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindWorkspace finds the workspace, exits on error.
// Returns the workspace root path.
func mustFindWorkspace() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindWorkspace(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}
