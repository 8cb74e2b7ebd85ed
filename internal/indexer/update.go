package indexer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/corelens/corelens/internal/corerr"
	"github.com/corelens/corelens/internal/locator"
	"github.com/corelens/corelens/internal/manifest"
	"github.com/corelens/corelens/internal/vectorstore"
	"github.com/corelens/corelens/internal/walker"
)

// Update runs an incremental refresh of the index rooted at indexRoot:
// mtime-then-hash staleness detection against the manifest, re-index
// of changed/new files, and cleanup of removed files' blocks. It is
// the path the searcher takes before every query.
func (ix *Indexer) Update(ctx context.Context, indexRoot string) (*Summary, error) {
	abs, err := filepath.Abs(indexRoot)
	if err != nil {
		return nil, err
	}
	markerDir := locator.MarkerDir(ix.cfg)
	indexDir := filepath.Join(abs, markerDir)

	mf, err := manifest.Load(indexDir)
	if err != nil {
		return nil, corerr.New(corerr.CodeIndexMissing, fmt.Sprintf("no manifest at %s", indexDir), err)
	}
	identity := modelIdentity(ix.embedder)
	if needs, reason := mf.NeedsRebuild(identity); needs {
		return nil, corerr.IndexNeedsRebuild(reason)
	}

	lock := newWriteLock(indexDir)
	if err := lock.acquire(); err != nil {
		return nil, err
	}
	defer lock.release()

	store, err := vectorstore.Open(indexDir, ix.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	current, err := ix.walker.ScanMetadata(walker.Options{
		RootDir:      abs,
		MarkerDir:    markerDir,
		Extensions:   ix.cfg.Paths.Extensions,
		ExcludeGlobs: ix.cfg.Paths.ExcludeGlobs,
		FollowHidden: ix.cfg.Paths.FollowHidden,
		MaxFileSize:  ix.cfg.MaxFileSizeBytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("scan metadata: %w", err)
	}

	var toReindex []fileToIndex
	var removed []string

	for relPath, rec := range mf.Files {
		meta, present := current[relPath]
		if !present {
			removed = append(removed, relPath)
			continue
		}
		if meta.ModTimeNS == rec.MTimeNS {
			continue // unchanged
		}
		// mtime differs: the file is re-read and extracted, and its
		// content hash decides below whether its blocks are re-embedded,
		// since some filesystems/tools touch mtime without changing bytes.
		toReindex = append(toReindex, fileToIndex{
			absolutePath: filepath.Join(abs, filepath.FromSlash(relPath)),
			relativePath: relPath,
			mtimeNS:      meta.ModTimeNS,
		})
	}
	for relPath, meta := range current {
		if _, known := mf.Files[relPath]; !known {
			toReindex = append(toReindex, fileToIndex{
				absolutePath: filepath.Join(abs, filepath.FromSlash(relPath)),
				relativePath: relPath,
				mtimeNS:      meta.ModTimeNS,
			})
		}
	}

	for _, relPath := range removed {
		ids := mf.Remove(relPath)
		for _, id := range ids {
			if err := store.Delete(id); err != nil {
				return nil, fmt.Errorf("delete removed file's blocks: %w", err)
			}
		}
	}

	if len(toReindex) == 0 {
		mf.Touch(nowNS())
		if err := mf.Save(indexDir); err != nil {
			return nil, fmt.Errorf("save manifest: %w", err)
		}
		return &Summary{FilesRemoved: len(removed), BlocksTotal: mf.BlockCount()}, nil
	}

	extracted, skips := ix.extractFiles(ctx, toReindex)

	var reextracted []extractedFile
	for _, f := range extracted {
		if rec, known := mf.Files[f.relativePath]; known && rec.ContentHash == f.contentHash {
			// mtime changed but bytes didn't: just refresh the stored
			// mtime, skip re-indexing this file's blocks.
			rec.MTimeNS = f.mtimeNS
			mf.Put(rec)
			continue
		}

		if rec, known := mf.Files[f.relativePath]; known {
			for _, id := range rec.BlockIDs {
				if err := store.Delete(id); err != nil {
					return nil, fmt.Errorf("delete stale blocks for %s: %w", f.relativePath, err)
				}
			}
		}
		reextracted = append(reextracted, f)
	}

	blockIDsByFile, err := ix.embedAndStore(ctx, store, reextracted)
	if err != nil {
		return nil, err
	}
	for _, f := range reextracted {
		mf.Put(manifest.FileRecord{
			RelativePath: f.relativePath,
			MTimeNS:      f.mtimeNS,
			ContentHash:  f.contentHash,
			BlockIDs:     blockIDsByFile[f.relativePath],
		})
	}

	mf.Touch(nowNS())
	if err := mf.Save(indexDir); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}
	if err := store.Flush(); err != nil {
		return nil, fmt.Errorf("flush store: %w", err)
	}

	return &Summary{
		FilesIndexed: len(reextracted),
		FilesSkipped: len(skips),
		FilesRemoved: len(removed),
		BlocksTotal:  mf.BlockCount(),
		SkippedFiles: skips,
	}, nil
}
