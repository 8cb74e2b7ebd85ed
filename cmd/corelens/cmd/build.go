package cmd

import (
	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/indexer"
	"github.com/corelens/corelens/internal/output"
)

func newBuildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build <path>",
		Short: "Build or refresh the index rooted at <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "build even under an existing parent index")
	return cmd
}

func runBuild(cmd *cobra.Command, path string, force bool) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	onProgress := func(phase string, current, total int) {
		out.Progress(current, total, phase)
	}

	ix, err := indexer.New(cfg, embedder, onProgress)
	if err != nil {
		return err
	}
	defer ix.Close()

	summary, err := ix.Build(ctx, path, force)
	if err != nil {
		return err
	}

	out.Successf("indexed %d files, %d blocks, skipped %d files", summary.FilesIndexed, summary.BlocksTotal, summary.FilesSkipped)
	for _, skip := range summary.SkippedFiles {
		out.Warningf("%s: %s", skip.RelativePath, skip.Err)
	}
	return nil
}
