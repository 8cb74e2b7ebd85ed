package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/output"
	"github.com/corelens/corelens/internal/search"
)

// ErrNoResults is returned by runSearch when the query produced zero
// rows after filtering: not an execution failure, but the CLI still
// needs to surface it as a distinct exit code.
var ErrNoResults = errors.New("no results")

type searchOptions struct {
	n         int
	jsonOut   bool
	compact   bool
	filesOnly bool
	ext       string
	exclude   []string
	codeOnly  bool
	scope     string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:           "search <query> <path>",
		Short:         `Search an index, or "find similar" for a <file>#<name> / <file>:<line> query`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], args[1], opts)
		},
	}
	cmd.Flags().IntVarP(&opts.n, "n", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "structured JSON output")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "omit block content from output")
	cmd.Flags().BoolVarP(&opts.filesOnly, "files-only", "l", false, "print unique file paths only")
	cmd.Flags().StringVarP(&opts.ext, "type", "t", "", "filter by file extension")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "glob patterns to exclude")
	cmd.Flags().BoolVar(&opts.codeOnly, "code-only", false, "skip markdown/text blocks")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "restrict results to this subtree of <path>")

	return cmd
}

// runSearch dispatches to find_similar when query looks like
// <file>#<name> or <file>:<line>, else runs a plain search.
func runSearch(cmd *cobra.Command, query, path string, opts searchOptions) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	searcher, err := search.New(cfg, embedder)
	if err != nil {
		return err
	}
	defer searcher.Close()

	var scopePath string
	if opts.scope != "" {
		scopePath, err = filepath.Abs(opts.scope)
		if err != nil {
			return err
		}
	}

	var hits []search.Hit
	if ref, ok := looksLikeBlockRef(query); ok {
		hits, err = searcher.FindSimilar(ctx, ref, path, opts.n)
	} else {
		autoBuild := cfg.Index.AutoBuild
		hits, err = searcher.Search(ctx, query, path, opts.n, scopePath, autoBuild)
	}
	if err != nil {
		return err
	}

	hits = applyCLIFilters(hits, opts)

	rows := make([]output.ResultRow, len(hits))
	for i, h := range hits {
		rows[i] = output.ResultRow{
			File:    h.RelativePath,
			Type:    h.Kind,
			Name:    h.Name,
			Line:    h.StartLine,
			EndLine: h.EndLine,
			Score:   h.Score,
			Content: h.Content,
		}
	}

	if err := output.WriteResults(cmd.OutOrStdout(), rows, output.RenderOptions{
		JSON:      opts.jsonOut,
		Compact:   opts.compact,
		FilesOnly: opts.filesOnly,
	}); err != nil {
		return err
	}

	if len(rows) == 0 {
		return ErrNoResults
	}
	return nil
}

// looksLikeBlockRef recognizes the <file>#<name> / <file>:<line>
// find_similar query syntax; anything else is a plain text query.
func looksLikeBlockRef(query string) (search.BlockRef, bool) {
	ref, err := search.ParseBlockRef(query)
	return ref, err == nil
}

func applyCLIFilters(hits []search.Hit, opts searchOptions) []search.Hit {
	out := make([]search.Hit, 0, len(hits))
	for _, h := range hits {
		if opts.ext != "" && !strings.HasSuffix(h.RelativePath, opts.ext) {
			continue
		}
		if opts.codeOnly && (h.Language == "markdown" || h.Language == "text") {
			continue
		}
		if matchesAnyExclude(h.RelativePath, opts.exclude) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func matchesAnyExclude(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, path); ok {
			return true
		}
	}
	return false
}
