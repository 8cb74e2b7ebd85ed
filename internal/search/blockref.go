package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corelens/corelens/internal/corerr"
	"github.com/corelens/corelens/internal/vectorstore"
)

// BlockRef is a parsed find_similar target: either "path#name" (match
// a block by declared name) or "path:line" (match the block whose
// range contains that line).
type BlockRef struct {
	RelativePath string
	Name         string
	Line         int
}

// ParseBlockRef parses "<file>#<name>" or "<file>:<line>" syntax. The
// POSIX-form relative path is returned as-is; callers resolve it
// against an index root.
func ParseBlockRef(raw string) (BlockRef, error) {
	if idx := strings.LastIndex(raw, "#"); idx > 0 {
		return BlockRef{RelativePath: raw[:idx], Name: raw[idx+1:]}, nil
	}
	if idx := strings.LastIndex(raw, ":"); idx > 0 {
		line, err := strconv.Atoi(raw[idx+1:])
		if err != nil {
			return BlockRef{}, fmt.Errorf("invalid line number in %q: %w", raw, err)
		}
		return BlockRef{RelativePath: raw[:idx], Line: line}, nil
	}
	return BlockRef{}, fmt.Errorf("%q is not a file#name or file:line reference", raw)
}

// ResolvedBlock is the block a BlockRef resolved to, with everything
// FindSimilar needs to query and boost from it.
type ResolvedBlock struct {
	ID           string
	Name         string
	RelativePath string
	Tokens       []vectorstore.TokenVector
}

// ResolveBlockRef finds the block a reference names within indexRoot's
// store by scanning every record under the reference's path and
// matching on name or line containment.
func ResolveBlockRef(store *vectorstore.Store, indexRoot string, ref BlockRef) (*ResolvedBlock, error) {
	relPath := toIndexRelative(indexRoot, ref.RelativePath)

	candidates, err := store.QueryWithOptions(nil, 1<<20, vectorstore.QueryOptions{
		Filter: vectorstore.Filter{PathPrefix: relPath},
	})
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.Metadata["relative_path"] != relPath {
			continue
		}
		if ref.Name != "" {
			if c.Metadata["name"] != ref.Name {
				continue
			}
		} else {
			start, _ := strconv.Atoi(c.Metadata["start_line"])
			end, _ := strconv.Atoi(c.Metadata["end_line"])
			if ref.Line < start || ref.Line > end {
				continue
			}
		}
		tokens, _, _, err := store.GetRecord(c.ID)
		if err != nil {
			return nil, err
		}
		return &ResolvedBlock{ID: c.ID, Name: c.Metadata["name"], RelativePath: relPath, Tokens: tokens}, nil
	}

	return nil, corerr.New(corerr.CodePathNotFound, fmt.Sprintf("no block matching reference in %s", relPath), nil)
}

// toIndexRelative strips an index root prefix from a reference path
// that was given absolute or root-relative, leaving the POSIX-form
// path the store indexes blocks under.
func toIndexRelative(indexRoot, refPath string) string {
	trimmed := strings.TrimPrefix(refPath, indexRoot)
	trimmed = strings.TrimPrefix(trimmed, "/")
	trimmed = strings.TrimPrefix(trimmed, "\\")
	return strings.ReplaceAll(trimmed, "\\", "/")
}
