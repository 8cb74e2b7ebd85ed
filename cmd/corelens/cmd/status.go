package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/locator"
	"github.com/corelens/corelens/internal/manifest"
)

type statusInfo struct {
	FileCount     int    `json:"file_count"`
	BlockCount    int    `json:"block_count"`
	SchemaVersion int    `json:"schema_version"`
	ModelIdentity string `json:"model_identity"`
}

func newStatusCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <path>",
		Short: "Print index statistics for <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "machine-readable JSON output")
	return cmd
}

func runStatus(cmd *cobra.Command, path string, jsonOut bool) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	markerDir := locator.MarkerDir(cfg)

	loc, ok, err := locator.FindParent(path, markerDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no index found at or above %s", path)
	}

	mf, err := manifest.Load(loc.IndexDir)
	if err != nil {
		return err
	}

	info := statusInfo{
		FileCount:     len(mf.Files),
		BlockCount:    mf.BlockCount(),
		SchemaVersion: mf.SchemaVersion,
		ModelIdentity: mf.ModelIdentity,
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "files:          %d\n", info.FileCount)
	fmt.Fprintf(cmd.OutOrStdout(), "blocks:         %d\n", info.BlockCount)
	fmt.Fprintf(cmd.OutOrStdout(), "schema_version: %d\n", info.SchemaVersion)
	fmt.Fprintf(cmd.OutOrStdout(), "model_identity: %s\n", info.ModelIdentity)
	return nil
}
