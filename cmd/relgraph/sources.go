package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/relgraph/internal/config"
	"github.com/matsen/relgraph/internal/source"
)

// Snapshot source kinds accepted by --source.
const (
	SourceAuto  = ""
	SourceAPI   = "api"
	SourceFiles = "files"
	SourceCache = "cache"
)

// addSourceFlags registers --source and --min-weight on cmd.
func addSourceFlags(cmd *cobra.Command, kind *string, minWeight *float64) {
	cmd.Flags().StringVar(kind, "source", SourceAuto, "Snapshot source: api, files, or cache (default: api when configured, else files)")
	cmd.Flags().Float64Var(minWeight, "min-weight", 0, "Drop edges lighter than this weight (default from config)")
}

// effectiveMinWeight returns the flag value when set, else the configured one.
func effectiveMinWeight(cmd *cobra.Command, flagValue float64) float64 {
	if cmd.Flags().Changed("min-weight") || globalCfg == nil {
		return flagValue
	}
	return globalCfg.MinWeight
}

// newAPIClient builds the graph API client from the global config.
func newAPIClient() *source.Client {
	opts := []source.ClientOption{source.WithLogger(logger)}
	if globalCfg.APIURL != "" {
		opts = append(opts, source.WithBaseURL(globalCfg.APIURL))
	}
	if globalCfg.APIKey != "" {
		opts = append(opts, source.WithAPIKey(globalCfg.APIKey))
	}
	logger.Debug("graph API client", "base_url", globalCfg.APIURL, "api_key_set", globalCfg.APIKey != "")
	return source.NewClient(opts...)
}

// resolveSource picks the snapshot source for kind. An empty kind prefers
// the API when one is configured and falls back to the workspace files.
func resolveSource(kind string) (source.Source, string, error) {
	switch kind {
	case SourceAPI:
		return newAPIClient(), SourceAPI, nil
	case SourceFiles, SourceCache:
		start, code := getStartingDirectory()
		if code != 0 {
			return nil, "", fmt.Errorf("no starting directory")
		}
		root, err := config.FindWorkspace(start)
		if err != nil {
			return nil, "", err
		}
		if kind == SourceCache {
			return source.Cache{Path: config.DBPath(root)}, SourceCache, nil
		}
		return source.Files{Paths: config.JSONLPaths(root)}, SourceFiles, nil
	case SourceAuto:
		if globalCfg != nil && globalCfg.APIURL != "" {
			return resolveSource(SourceAPI)
		}
		return resolveSource(SourceFiles)
	default:
		return nil, "", fmt.Errorf("unknown source %q: must be api, files, or cache", kind)
	}
}

// mustResolveSource resolves the source or exits with a config error.
func mustResolveSource(kind string) source.Source {
	src, resolved, err := resolveSource(kind)
	if err != nil {
		if kind == SourceAuto {
			fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
			os.Exit(ExitConfigError)
		}
		exitWithError(ExitConfigError, "%v", err)
	}
	logger.Debug("snapshot source", "source", resolved)
	return src
}
