package walker

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// gitignoreCacheSize bounds the number of per-directory matchers kept
// resident, so a deep tree doesn't rebuild the same matcher repeatedly.
const gitignoreCacheSize = 1000

// Walker traverses a project root honoring ignore rules and produces
// a stream of indexable files.
type Walker struct {
	cache *lru.Cache[string, *gitignoreMatcher]
}

// New creates a Walker with a bounded gitignore-matcher cache.
func New() (*Walker, error) {
	cache, err := lru.New[string, *gitignoreMatcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gitignore cache: %w", err)
	}
	return &Walker{cache: cache}, nil
}

// Scan returns full entries (mtime + size, guaranteed present on
// disk at call time) for every indexable file under opts.RootDir.
func (w *Walker) Scan(opts Options) ([]Entry, error) {
	applyDefaults(&opts)

	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []Entry
	visited := map[string]bool{}
	excludeMatcher := baseExcludeMatcher(opts.ExcludeGlobs)

	err = w.walkDir(root, root, opts, visited, excludeMatcher, func(path string, rel string, fi os.FileInfo) {
		entries = append(entries, Entry{
			AbsolutePath: path,
			RelativePath: rel,
			ModTime:      fi.ModTime(),
			Size:         fi.Size(),
		})
	})
	return entries, err
}

// ScanMetadata is the stat-only counterpart of Scan, used by the
// incremental-update freshness check so comparing mtimes against the
// manifest never reads file content unnecessarily.
func (w *Walker) ScanMetadata(opts Options) (map[string]MetaEntry, error) {
	entries, err := w.Scan(opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]MetaEntry, len(entries))
	for _, e := range entries {
		out[e.RelativePath] = MetaEntry{
			RelativePath: e.RelativePath,
			ModTimeNS:    e.ModTime.UnixNano(),
			Size:         e.Size,
		}
	}
	return out, nil
}

func applyDefaults(opts *Options) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MarkerDir == "" {
		opts.MarkerDir = ".corelens"
	}
}

func baseExcludeMatcher(globs []string) *gitignoreMatcher {
	m := newGitignoreMatcher()
	for _, g := range globs {
		m.addPattern(g, "")
	}
	return m
}

// walkDir recursively visits dir, invoking emit for each qualifying
// file. Inaccessible subdirectories are logged and skipped rather than
// aborting the whole walk.
func (w *Walker) walkDir(
	root, dir string,
	opts Options,
	visited map[string]bool,
	excludeMatcher *gitignoreMatcher,
	emit func(path, rel string, fi os.FileInfo),
) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real = dir
	}
	if visited[real] {
		return nil // cyclic symlink
	}
	visited[real] = true

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("walker: cannot read directory", "path", dir, "error", err)
		return nil
	}

	matcher := w.matcherFor(dir, root)

	for _, de := range dirEntries {
		name := de.Name()
		path := filepath.Join(dir, name)
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if de.IsDir() {
			if name == opts.MarkerDir || defaultIgnoredDirs[name] {
				continue
			}
			if !opts.FollowHidden && strings.HasPrefix(name, ".") {
				continue
			}
			if matcher.match(rel, true) || excludeMatcher.match(rel, true) {
				continue
			}

			info, infoErr := de.Info()
			if infoErr == nil && info.Mode()&os.ModeSymlink != 0 && !opts.FollowSymlinks {
				continue
			}

			if err := w.walkDir(root, path, opts, visited, excludeMatcher, emit); err != nil {
				return err
			}
			continue
		}

		if !opts.FollowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if matcher.match(rel, false) || excludeMatcher.match(rel, false) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			slog.Warn("walker: cannot stat file", "path", path, "error", err)
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil {
				continue
			}
			info, err = os.Stat(resolved)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if opts.FollowSymlinks {
					if err := w.walkDir(root, path, opts, visited, excludeMatcher, emit); err != nil {
						return err
					}
				}
				continue
			}
		}

		if info.Size() > opts.MaxFileSize {
			continue
		}
		if !indexable(name, opts.Extensions) {
			continue
		}
		if isAmbiguousExtension(name) && fileSniffsBinary(path) {
			continue
		}

		emit(path, rel, info)
	}

	return nil
}

// matcherFor loads (and LRU-caches) the gitignore matcher rooted at
// dir, walking from root down to dir so nested .gitignore files
// compose with their ancestors.
func (w *Walker) matcherFor(dir, root string) *gitignoreMatcher {
	if cached, ok := w.cache.Get(dir); ok {
		return cached
	}

	m := newGitignoreMatcher()
	if dir != root {
		parent := w.matcherFor(filepath.Dir(dir), root)
		parent.mu.RLock()
		m.rules = append(m.rules, parent.rules...)
		parent.mu.RUnlock()
	}
	rel, _ := filepath.Rel(root, dir)
	if rel == "." {
		rel = ""
	}
	gi := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gi); err == nil {
		_ = m.loadFile(gi, filepath.ToSlash(rel))
	}

	w.cache.Add(dir, m)
	return m
}

// indexable reports whether name qualifies under the extension filter
// and isn't a known binary format.
func indexable(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if binaryExtensions[ext] {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// looksBinary sniffs content for a NUL byte within the first 512
// bytes, a cheap heuristic for ambiguous extensions.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// knownTextExtensions never need a content sniff.
var knownTextExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".mjs": true, ".ts": true, ".tsx": true,
	".py": true, ".md": true, ".markdown": true, ".rst": true, ".txt": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".html": true, ".css": true,
}

// isAmbiguousExtension reports whether name's extension is neither a
// known-binary nor a known-text extension — e.g. extensionless files
// or uncommon suffixes — and therefore warrants a content sniff.
func isAmbiguousExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return true
	}
	return !knownTextExtensions[ext] && !binaryExtensions[ext]
}

// fileSniffsBinary reads a small prefix of path and applies looksBinary.
// Read failures are treated as "not binary" so the walker doesn't drop
// files it merely failed to preview.
func fileSniffsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return looksBinary(buf[:n])
}
