package walker

import "time"

// DefaultMaxFileSize is the default per-file size cap (1 MiB).
const DefaultMaxFileSize int64 = 1024 * 1024

// defaultIgnoredDirs are skipped unconditionally, in addition to
// whatever .gitignore says.
var defaultIgnoredDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"build":        true,
	"dist":         true,
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".pixi":        true,
}

// binaryExtensions are skipped without a content sniff.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".so": true, ".dylib": true, ".dll": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".bin": true, ".o": true, ".a": true,
	".mp3": true, ".mp4": true, ".mov": true, ".wasm": true,
}

// Options configures a Walker.
type Options struct {
	// RootDir is the absolute directory to walk.
	RootDir string
	// MarkerDir is the index directory name to skip (it lives under
	// RootDir and must never be walked into).
	MarkerDir string
	// Extensions restricts results to these extensions; empty means
	// "no restriction beyond the binary/size/ignore rules".
	Extensions []string
	// ExcludeGlobs are additional gitignore-syntax excludes layered on
	// top of any discovered .gitignore files.
	ExcludeGlobs []string
	// FollowHidden includes dotfiles/dot-directories other than the
	// hardcoded ignore list.
	FollowHidden bool
	// FollowSymlinks permits descending into symlinked directories
	// (cycle-guarded via canonicalization).
	FollowSymlinks bool
	// MaxFileSize rejects files larger than this many bytes. Zero uses
	// DefaultMaxFileSize.
	MaxFileSize int64
	// Workers is not read by Walker: Scan traverses directories
	// sequentially on the calling goroutine.
	Workers int
}

// Entry is one discovered file.
type Entry struct {
	AbsolutePath string
	RelativePath string // POSIX form, relative to RootDir
	ModTime      time.Time
	Size         int64
}

// MetaEntry is the stat-only counterpart of Entry, returned by
// ScanMetadata.
type MetaEntry struct {
	RelativePath string
	ModTimeNS    int64
	Size         int64
}
