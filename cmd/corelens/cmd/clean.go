package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/locator"
	"github.com/corelens/corelens/internal/manifest"
	"github.com/corelens/corelens/internal/output"
	"github.com/corelens/corelens/internal/vectorstore"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <path>",
		Short: "Delete the index at <path>, or remove a subtree's blocks from its governing index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args[0])
		},
	}
	return cmd
}

func runClean(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	markerDir := locator.MarkerDir(cfg)

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	loc, ok, err := locator.FindParent(abs, markerDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no index found at or above %s", path)
	}

	out := output.New(cmd.OutOrStdout())

	if loc.Root == abs {
		if err := os.RemoveAll(loc.IndexDir); err != nil {
			return err
		}
		out.Successf("removed index at %s", loc.IndexDir)
		return nil
	}

	return removeSubtree(ctx, cfg, loc, abs, out)
}

// removeSubtree deletes only the blocks and manifest entries belonging
// to files under abs, leaving the rest of the governing index intact.
func removeSubtree(ctx context.Context, cfg *config.Config, loc locator.Located, abs string, out *output.Writer) error {
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	mf, err := manifest.Load(loc.IndexDir)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(loc.Root, abs)
	if err != nil {
		return err
	}
	prefix := filepath.ToSlash(rel) + "/"

	store, err := vectorstore.Open(loc.IndexDir, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer store.Close()

	var toRemove []string
	for relPath := range mf.Files {
		if strings.HasPrefix(relPath, prefix) {
			toRemove = append(toRemove, relPath)
		}
	}

	for _, relPath := range toRemove {
		for _, id := range mf.Remove(relPath) {
			if err := store.Delete(id); err != nil {
				return err
			}
		}
	}
	removed := len(toRemove)

	if err := store.Compact(); err != nil {
		return err
	}
	if err := mf.Save(loc.IndexDir); err != nil {
		return err
	}

	out.Successf("removed %d files under %s", removed, abs)
	return nil
}
