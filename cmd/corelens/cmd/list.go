package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/locator"
)

func newListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <path>",
		Short: "Enumerate all indexes at or below <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "machine-readable JSON output")
	return cmd
}

func runList(cmd *cobra.Command, path string, jsonOut bool) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	markerDir := locator.MarkerDir(cfg)

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var roots []string
	if st, err := os.Stat(filepath.Join(abs, markerDir)); err == nil && st.IsDir() {
		roots = append(roots, abs)
	}

	subs, err := locator.FindSubordinates(abs, markerDir)
	if err != nil {
		return err
	}
	for _, s := range subs {
		roots = append(roots, s.Root)
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(roots)
	}
	for _, r := range roots {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}
