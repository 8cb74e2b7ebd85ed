package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corelens/corelens/internal/locator"
	"github.com/corelens/corelens/internal/manifest"
	"github.com/corelens/corelens/internal/vectorstore"
	"github.com/corelens/corelens/internal/walker"
)

// Build performs a fresh build of the index rooted at targetPath. It
// refuses if a governing parent index already exists above
// targetPath (unless force is set), merges in any subordinate indexes nested beneath it, and
// then walks, extracts, embeds, and stores every file found.
func (ix *Indexer) Build(ctx context.Context, targetPath string, force bool) (*Summary, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, err
	}
	markerDir := locator.MarkerDir(ix.cfg)

	if !force {
		if err := locator.CheckNoParent(abs, markerDir); err != nil {
			return nil, err
		}
	}

	indexDir := filepath.Join(abs, markerDir)
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

	mf := manifest.New(modelIdentity(ix.embedder), nowNS())

	subs, err := locator.FindSubordinates(abs, markerDir)
	if err != nil {
		return nil, fmt.Errorf("discover subordinate indexes: %w", err)
	}
	for _, sub := range subs {
		if err := ix.mergeSubordinate(mf, store, sub); err != nil {
			return nil, fmt.Errorf("merge subordinate index at %s: %w", sub.Root, err)
		}
	}

	entries, err := ix.walker.Scan(walker.Options{
		RootDir:      abs,
		MarkerDir:    markerDir,
		Extensions:   ix.cfg.Paths.Extensions,
		ExcludeGlobs: ix.cfg.Paths.ExcludeGlobs,
		FollowHidden: ix.cfg.Paths.FollowHidden,
		MaxFileSize:  ix.cfg.MaxFileSizeBytes(),
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	ix.onProgress("walk", len(entries), len(entries))

	// Files already folded in via a subordinate merge are excluded
	// from the direct walk: the merge copied their vectors by id
	// without re-embedding, and re-walking them here would pay the
	// embedding cost the merge was meant to avoid.
	toIndex := make([]fileToIndex, 0, len(entries))
	for _, e := range entries {
		if underAnySubordinate(e.AbsolutePath, subs) {
			continue
		}
		toIndex = append(toIndex, fileToIndex{absolutePath: e.AbsolutePath, relativePath: e.RelativePath, mtimeNS: e.ModTime.UnixNano()})
	}

	extracted, skips := ix.extractFiles(ctx, toIndex)
	ix.onProgress("extract", len(extracted), len(entries))

	blockIDsByFile, err := ix.embedAndStore(ctx, store, extracted)
	if err != nil {
		// Partial writes are permitted but the manifest is left
		// untouched: the next run treats unwritten blocks as missing
		// and re-indexes their files.
		return nil, err
	}

	for _, f := range extracted {
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
		FilesIndexed: len(extracted),
		FilesSkipped: len(skips),
		BlocksTotal:  mf.BlockCount(),
		SkippedFiles: skips,
	}, nil
}

// mergeSubordinate folds a nested index's manifest and token vectors
// into the new store: token matrices are copied by id without
// re-embedding and keep their ids, file records and each block's
// relative_path are prefixed with the subordinate's relative
// position, and the subordinate's directory is removed once merged.
func (ix *Indexer) mergeSubordinate(mf *manifest.Manifest, store *vectorstore.Store, sub locator.Subordinate) error {
	subManifest, err := manifest.Load(sub.IndexDir)
	if err != nil {
		return fmt.Errorf("load subordinate manifest: %w", err)
	}
	subStore, err := vectorstore.Open(sub.IndexDir, ix.embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("open subordinate store: %w", err)
	}

	for relPath, rec := range subManifest.Files {
		mergedPath := locator.JoinRelative(sub.RelativeTo, relPath)
		mergedIDs := make([]string, 0, len(rec.BlockIDs))

		for _, id := range rec.BlockIDs {
			tokens, kind, metadata, err := subStore.GetRecord(id)
			if err != nil {
				continue // orphaned id in the subordinate manifest; skip rather than fail the whole merge
			}
			mergedIDs = append(mergedIDs, id)
			metadata["relative_path"] = mergedPath
			text := metadata["name"] + " " + metadata["content"]
			if err := store.Store(id, mergedPath, kind, tokens, text, metadata); err != nil {
				return fmt.Errorf("copy block %s: %w", id, err)
			}
		}

		mf.Put(manifest.FileRecord{
			RelativePath: mergedPath,
			MTimeNS:      rec.MTimeNS,
			ContentHash:  rec.ContentHash,
			BlockIDs:     mergedIDs,
		})
	}

	if err := subStore.Close(); err != nil {
		return fmt.Errorf("close subordinate store: %w", err)
	}
	return os.RemoveAll(sub.IndexDir)
}

func nowNS() int64 {
	return time.Now().UnixNano()
}

func underAnySubordinate(absPath string, subs []locator.Subordinate) bool {
	for _, sub := range subs {
		if absPath == sub.Root || len(absPath) > len(sub.Root) && absPath[:len(sub.Root)+1] == sub.Root+string(filepath.Separator) {
			return true
		}
	}
	return false
}
