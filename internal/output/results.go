package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// ResultRow is the renderable shape of one search or find_similar hit,
// decoupled from internal/search.Hit so this package has no import
// cycle back into the search pipeline.
type ResultRow struct {
	File    string  `json:"file"`
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Line    int     `json:"line"`
	EndLine int     `json:"end_line"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// RenderOptions controls how WriteResults formats a row set.
type RenderOptions struct {
	JSON      bool
	Compact   bool // omit Content
	FilesOnly bool // print unique file paths only
}

// WriteResults renders rows to out per opts. JSON mode always emits a
// (possibly empty) JSON array, even for zero rows, so scripts consuming
// it never have to special-case "no results".
func WriteResults(out io.Writer, rows []ResultRow, opts RenderOptions) error {
	if opts.Compact {
		for i := range rows {
			rows[i].Content = ""
		}
	}

	if opts.FilesOnly {
		return writeFilesOnly(out, rows, opts.JSON)
	}

	if opts.JSON {
		if rows == nil {
			rows = []ResultRow{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := New(out)
	for i, r := range rows {
		loc := r.File
		if r.Line > 0 {
			loc = fmt.Sprintf("%s:%d", r.File, r.Line)
		}
		w.Statusf("", "%d. %s (%s, score: %.3f)", i+1, loc, r.Name, r.Score)
		if r.Content != "" {
			w.Code(r.Content)
		}
	}
	return nil
}

// Code prints an indented block, e.g. a result snippet.
func (w *Writer) Code(content string) {
	lines := splitLines(content, 3)
	for _, line := range lines {
		_, _ = fmt.Fprintf(w.out, "     %s\n", line)
	}
}

func splitLines(content string, max int) []string {
	var lines []string
	start := 0
	for i := 0; i < len(content) && len(lines) < max; i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	if len(lines) < max && start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

func writeFilesOnly(out io.Writer, rows []ResultRow, asJSON bool) error {
	seen := make(map[string]bool, len(rows))
	files := make([]string, 0, len(rows))
	for _, r := range rows {
		if !seen[r.File] {
			seen[r.File] = true
			files = append(files, r.File)
		}
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}
	for _, f := range files {
		if _, err := fmt.Fprintln(out, f); err != nil {
			return err
		}
	}
	return nil
}
