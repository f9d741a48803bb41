package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/worktree"
)

// Lister enumerates the worktrees of a repository.
// *worktree.Manager implements it.
type Lister interface {
	List(gitDir string) ([]worktree.WorktreeInfo, error)
}

// Engine moves tracked files between the store and worktrees.
type Engine struct {
	Store *Store

	// WorktreeRoot is the current worktree. Track, Push and Pull operate
	// on it; Untrack restores every worktree.
	WorktreeRoot string

	// GitDir is the common git directory passed to Worktrees.
	GitDir string

	// Worktrees lists the worktrees for Untrack. When nil, only
	// WorktreeRoot is restored.
	Worktrees Lister
}

// TrackResult describes a completed Track.
type TrackResult struct {
	Entry model.ManifestEntry `json:"entry"`

	// Retracked is true when the path was already in the manifest.
	Retracked bool `json:"retracked"`

	// Linked is true when the worktree path was replaced by a symlink.
	Linked bool `json:"linked"`
}

// Track registers rel with strategy and copies the worktree file into the
// store. For the symlink strategy the worktree path is then replaced by a
// link to the master copy. Re-tracking a path replaces its strategy and
// refreshes the master copy.
func (e *Engine) Track(strategy model.Strategy, rel string) (*TrackResult, error) {
	if !strategy.IsValid() {
		_, err := model.ParseStrategy(string(strategy))
		return nil, model.WrapCLIError(model.ExitInvalidStrategy, "cannot track", err)
	}
	rel, err := NormalizePath(rel)
	if err != nil {
		return nil, pathError(err)
	}

	source := filepath.Join(e.WorktreeRoot, rel)
	if !pathExists(source) {
		return nil, model.WrapCLIError(model.ExitFileNotFound,
			"cannot track", fmt.Errorf("%w: %s", model.ErrFileNotFound, source))
	}
	if e.insideStore(source) {
		return nil, pathError(fmt.Errorf("%w: %s is inside a directory linked into the store",
			model.ErrInvalidPath, rel))
	}

	entry := model.ManifestEntry{Strategy: strategy, Filepath: rel}
	result := &TrackResult{Entry: entry}

	err = e.Store.WithLock(func() error {
		entries, err := e.Store.ReadManifest()
		if err != nil {
			return err
		}
		entries, result.Retracked = Upsert(entries, entry)
		if err := e.Store.WriteManifest(entries); err != nil {
			return err
		}

		storeFile := e.Store.Path(rel)
		if sameFile(source, storeFile) {
			// Already linked into the store. Switching to copy detaches it.
			if strategy == model.StrategyCopy && isSymlink(source) {
				if err := os.Remove(source); err != nil {
					return copyError(rel, err)
				}
				if err := copyTree(storeFile, source); err != nil {
					return copyError(rel, err)
				}
			}
		} else if err := replaceWithCopy(source, storeFile); err != nil {
			return copyError(rel, err)
		}

		if strategy == model.StrategySymlink && !isSymlink(source) {
			if err := os.RemoveAll(source); err != nil {
				return copyError(rel, err)
			}
			if err := os.Symlink(storeFile, source); err != nil {
				return copyError(rel, err)
			}
			result.Linked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Push copies Copy-tracked files from the current worktree into the store.
// With a non-empty filter only that path is pushed, and it must be
// Copy-tracked. Entries missing from the worktree are skipped.
func (e *Engine) Push(filter string) ([]model.Outcome, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := e.Store.Require(); err != nil {
		return nil, err
	}

	var outcomes []model.Outcome
	err = e.Store.WithLock(func() error {
		entries, err := e.Store.ReadManifest()
		if err != nil {
			return err
		}

		matched := false
		for _, entry := range entries {
			if entry.Strategy != model.StrategyCopy || (filter != "" && entry.Filepath != filter) {
				continue
			}
			matched = true

			source := filepath.Join(e.WorktreeRoot, entry.Filepath)
			if _, err := os.Stat(source); err != nil {
				outcomes = append(outcomes, model.Skipped(entry, "not present in worktree"))
				continue
			}
			storeFile := e.Store.Path(entry.Filepath)
			if sameFile(source, storeFile) {
				outcomes = append(outcomes, model.Skipped(entry, "worktree path links to the store copy"))
				continue
			}
			if err := replaceWithCopy(source, storeFile); err != nil {
				outcomes = append(outcomes, model.Failed(entry, err))
				continue
			}
			outcomes = append(outcomes, model.Applied(entry))
		}

		if filter != "" && !matched {
			return model.WrapCLIError(model.ExitUntrackedFile, "cannot push",
				fmt.Errorf("%w: %s", model.ErrNotCopyTracked, filter))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, failedError("push", outcomes)
}

// Pull materializes tracked files from the store into the current worktree.
// Existing paths are skipped unless force is set, in which case they are
// removed first. With a non-empty filter only that path is pulled.
func (e *Engine) Pull(filter string, force bool) ([]model.Outcome, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := e.Store.Require(); err != nil {
		return nil, err
	}

	entries, err := e.Store.ReadManifest()
	if err != nil {
		return nil, err
	}

	var outcomes []model.Outcome
	matched := false
	for _, entry := range entries {
		if filter != "" && entry.Filepath != filter {
			continue
		}
		matched = true
		outcomes = append(outcomes, e.materialize(entry, e.WorktreeRoot, force,
			"already exists (use --force to overwrite)"))
	}

	if filter != "" && !matched {
		return nil, model.WrapCLIError(model.ExitUntrackedFile, "cannot pull",
			fmt.Errorf("%w: %s", model.ErrUntrackedFile, filter))
	}
	return outcomes, failedError("pull", outcomes)
}

// Apply materializes every tracked file into a freshly created worktree at
// targetRoot. Paths already present there are never overwritten.
func (e *Engine) Apply(targetRoot string) ([]model.Outcome, error) {
	if err := e.Store.Require(); err != nil {
		return nil, err
	}
	entries, err := e.Store.ReadManifest()
	if err != nil {
		return nil, err
	}

	outcomes := make([]model.Outcome, 0, len(entries))
	for _, entry := range entries {
		outcomes = append(outcomes, e.materialize(entry, targetRoot, false, "already exists"))
	}
	return outcomes, nil
}

// materialize writes one entry into root according to its strategy.
// existsReason is the skip reason for a target that is already present.
func (e *Engine) materialize(entry model.ManifestEntry, root string, force bool, existsReason string) model.Outcome {
	storeFile := e.Store.Path(entry.Filepath)
	if !pathExists(storeFile) {
		return model.Skipped(entry, "missing from store")
	}

	target := filepath.Join(root, entry.Filepath)
	// Removing such a target would delete the master copy itself.
	if e.insideStore(target) {
		return model.Skipped(entry, "inside a directory linked into the store")
	}
	if pathExists(target) {
		if !force {
			return model.Skipped(entry, existsReason)
		}
		if err := os.RemoveAll(target); err != nil {
			return model.Failed(entry, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return model.Failed(entry, err)
	}

	switch entry.Strategy {
	case model.StrategySymlink:
		if err := os.Symlink(storeFile, target); err != nil {
			return model.Failed(entry, err)
		}
	default:
		if err := copyTree(storeFile, target); err != nil {
			return model.Failed(entry, err)
		}
	}
	return model.Applied(entry)
}

// Untrack removes rel from the manifest and deletes its master copy. For a
// Symlink entry every worktree whose path is currently a symlink first gets
// a real copy of the master, so no worktree is left with a dangling link.
// The returned outcomes describe those per-worktree restorations.
func (e *Engine) Untrack(rel string) ([]model.Outcome, error) {
	rel, err := NormalizePath(rel)
	if err != nil {
		return nil, pathError(err)
	}
	if err := e.Store.Require(); err != nil {
		return nil, err
	}

	var outcomes []model.Outcome
	err = e.Store.WithLock(func() error {
		entries, err := e.Store.ReadManifest()
		if err != nil {
			return err
		}
		entry, ok := Lookup(entries, rel)
		if !ok {
			return model.WrapCLIError(model.ExitUntrackedFile, "cannot untrack",
				fmt.Errorf("%w: %s", model.ErrUntrackedFile, rel))
		}

		storeFile := e.Store.Path(rel)
		if entry.Strategy == model.StrategySymlink && pathExists(storeFile) {
			roots, err := e.worktreeRoots()
			if err != nil {
				return err
			}
			for _, root := range roots {
				target := filepath.Join(root, rel)
				if !isSymlink(target) {
					continue
				}
				outcome := restoreCopy(entry, storeFile, target)
				outcome.Worktree = root
				outcomes = append(outcomes, outcome)
			}
		}

		entries, _ = Remove(entries, rel)
		if err := e.Store.WriteManifest(entries); err != nil {
			return err
		}
		if err := os.RemoveAll(storeFile); err != nil {
			return copyError(rel, err)
		}
		pruneEmptyParents(storeFile, e.Store.Dir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// worktreeRoots returns the paths of every non-bare worktree.
func (e *Engine) worktreeRoots() ([]string, error) {
	if e.Worktrees == nil {
		if e.WorktreeRoot == "" {
			return nil, nil
		}
		return []string{e.WorktreeRoot}, nil
	}
	list, err := e.Worktrees.List(e.GitDir)
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(list))
	for _, wt := range list {
		if !wt.IsBare {
			roots = append(roots, wt.Path)
		}
	}
	return roots, nil
}

// restoreCopy replaces the symlink at target with a copy of storeFile. The
// copy is staged next to target so a failed copy leaves the link in place.
func restoreCopy(entry model.ManifestEntry, storeFile, target string) model.Outcome {
	staging := target + ".ws-restore"
	if err := os.RemoveAll(staging); err != nil {
		return model.Failed(entry, err)
	}
	if err := copyTree(storeFile, staging); err != nil {
		_ = os.RemoveAll(staging)
		return model.Failed(entry, err)
	}
	if err := os.Remove(target); err != nil {
		_ = os.RemoveAll(staging)
		return model.Failed(entry, err)
	}
	if err := os.Rename(staging, target); err != nil {
		return model.Failed(entry, err)
	}
	return model.Applied(entry)
}

// insideStore reports whether the parent of path resolves into the store,
// as for a file below a symlink-tracked directory.
func (e *Engine) insideStore(path string) bool {
	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return false
	}
	dir := e.Store.Dir
	if canonical, err := filepath.EvalSymlinks(dir); err == nil {
		dir = canonical
	}
	return parent == dir || strings.HasPrefix(parent, dir+string(filepath.Separator))
}

// replaceWithCopy removes dst and copies src into its place, so files
// deleted from src do not linger in dst.
func replaceWithCopy(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyTree(src, dst)
}

// sameFile reports whether a and b resolve to the same file, as when the
// worktree path is already a link into the store.
func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func normalizeFilter(filter string) (string, error) {
	if filter == "" {
		return "", nil
	}
	clean, err := NormalizePath(filter)
	if err != nil {
		return "", pathError(err)
	}
	return clean, nil
}

func copyError(rel string, err error) error {
	return model.WrapCLIError(model.ExitCopyFailed,
		fmt.Sprintf("cannot update %s", rel), fmt.Errorf("%w: %w", model.ErrCopyFailed, err))
}

// failedError returns a CopyFailed error when any outcome failed.
func failedError(op string, outcomes []model.Outcome) error {
	n := model.CountOutcomes(outcomes, model.OutcomeFailed)
	if n == 0 {
		return nil
	}
	return model.WrapCLIError(model.ExitCopyFailed,
		fmt.Sprintf("%s: %d of %d entries failed", op, n, len(outcomes)), model.ErrCopyFailed)
}
