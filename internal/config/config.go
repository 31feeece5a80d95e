// Package config handles workspace and global configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/matsen/relgraph/internal/storage"
)

const (
	WorkspaceDir = ".relgraph"
	NodesFile    = "nodes.jsonl"
	EdgesFile    = "edges.jsonl"
	ClustersFile = "clusters.jsonl"
	CacheDir     = "cache"
	DBFile       = "graph.db"
	EnvFile      = ".env"
)

// WorkspacePath returns the path to the .relgraph directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// NodesPath returns the path to nodes.jsonl from a root path.
func NodesPath(root string) string {
	return filepath.Join(root, WorkspaceDir, NodesFile)
}

// EdgesPath returns the path to edges.jsonl from a root path.
func EdgesPath(root string) string {
	return filepath.Join(root, WorkspaceDir, EdgesFile)
}

// ClustersPath returns the path to clusters.jsonl from a root path.
func ClustersPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ClustersFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir)
}

// DBPath returns the path to graph.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, DBFile)
}

// JSONLPaths returns the three snapshot files of the workspace at root.
func JSONLPaths(root string) storage.JSONLPaths {
	return storage.JSONLPaths{
		Nodes:    NodesPath(root),
		Edges:    EdgesPath(root),
		Clusters: ClustersPath(root),
	}
}

// IsWorkspace checks if the given path contains a relgraph workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a relgraph workspace.
// Returns the workspace root path or an error if not found.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("%w (no %s directory found)", ErrNoWorkspace, WorkspaceDir)
		}
		abs = parent
	}
}

// InitWorkspace creates the workspace directories under root.
func InitWorkspace(root string) error {
	if err := os.MkdirAll(CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	return nil
}

// LoadEnv loads KEY=value pairs from .env files in the given directories.
// Missing files are skipped and variables already set win.
func LoadEnv(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, EnvFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
