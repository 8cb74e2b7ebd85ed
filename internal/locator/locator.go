// Package locator resolves the index hierarchy: walking upward from a
// target path to find a governing index, refusing to build a new
// index under an existing parent, and discovering subordinate indexes
// nested beneath a target path so a build can merge them in.
package locator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/corelens/corelens/internal/config"
	"github.com/corelens/corelens/internal/corerr"
)

// Located describes a governing index found above or at a path.
type Located struct {
	// Root is the directory the index was built against (the
	// directory containing the marker directory).
	Root string
	// IndexDir is Root/<marker_dir>.
	IndexDir string
}

// FindParent walks upward from startPath (inclusive) looking for a
// marker directory. It returns ok=false if none is found before
// reaching the filesystem root.
func FindParent(startPath, markerDir string) (loc Located, ok bool, err error) {
	dir, err := filepath.Abs(startPath)
	if err != nil {
		return Located{}, false, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Located{}, false, corerr.PathNotFound(startPath, err)
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		candidate := filepath.Join(dir, markerDir)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return Located{Root: dir, IndexDir: candidate}, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Located{}, false, nil
		}
		dir = parent
	}
}

// CheckNoParent refuses a build at targetPath if a governing index
// already exists above it, returning corerr.ParentIndexExists.
// A marker directory exactly at targetPath is not itself a "parent"
// (that's the index being rebuilt), so the walk starts one level up.
func CheckNoParent(targetPath, markerDir string) error {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return err
	}
	parentDir := filepath.Dir(abs)
	if parentDir == abs {
		return nil
	}
	loc, ok, err := FindParent(parentDir, markerDir)
	if err != nil {
		return err
	}
	if ok {
		return corerr.ParentIndexExists(loc.Root)
	}
	return nil
}

// Subordinate describes a nested index discovered beneath a target
// path, eligible for merge-in during a build or removal during clean.
type Subordinate struct {
	Root     string
	IndexDir string
	// RelativeTo is Root's path relative to the target, POSIX form,
	// used to prefix merged block paths and manifest keys.
	RelativeTo string
}

// FindSubordinates walks the tree under targetPath looking for nested
// marker directories, skipping further descent once one is found (a
// subordinate index governs everything beneath itself too).
func FindSubordinates(targetPath, markerDir string) ([]Subordinate, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, err
	}

	var out []Subordinate
	var foundRoots []string
	err = filepath.Walk(abs, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil // best-effort: inaccessible subtree is skipped
		}
		if path == abs {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		for _, root := range foundRoots {
			if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
				return filepath.SkipDir
			}
		}
		if info.Name() == markerDir {
			root := filepath.Dir(path)
			rel, err := filepath.Rel(abs, root)
			if err != nil {
				rel = root
			}
			foundRoots = append(foundRoots, root)
			out = append(out, Subordinate{
				Root:       root,
				IndexDir:   path,
				RelativeTo: filepath.ToSlash(rel),
			})
			return filepath.SkipDir
		}
		return nil
	})
	return out, err
}

// MarkerDir resolves the marker directory name from config, applying
// the built-in default if unset.
func MarkerDir(cfg *config.Config) string {
	if cfg == nil || cfg.Index.MarkerDir == "" {
		return ".corelens"
	}
	return cfg.Index.MarkerDir
}

// JoinRelative prefixes a block's relative path with a subordinate
// index's position under the merged root, keeping POSIX separators.
func JoinRelative(prefix, relativePath string) string {
	if prefix == "" || prefix == "." {
		return relativePath
	}
	return strings.TrimSuffix(prefix, "/") + "/" + relativePath
}
