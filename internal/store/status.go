package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/ws/internal/model"
)

// EntryStatus pairs a manifest entry with its reconciled status.
type EntryStatus struct {
	model.ManifestEntry
	Status model.FileStatus `json:"status"`
}

// FileStatusOf reconciles one entry. storeFile is the master copy and
// worktreeRoot the worktree to compare against; an empty worktreeRoot
// means there is no current worktree and only the store is checked.
//
// Symlink entries are OK when the worktree path is a link whose target is
// exactly storeFile. Content is not compared, so edits made through the
// link never show up as drift. Copy entries compare content recursively.
func FileStatusOf(entry model.ManifestEntry, storeFile, worktreeRoot string) model.FileStatus {
	if !pathExists(storeFile) {
		return model.StatusMissingStore
	}
	if worktreeRoot == "" {
		return model.StatusStoreOnly
	}

	target := filepath.Join(worktreeRoot, entry.Filepath)
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return model.StatusMissing
	}
	if err != nil {
		return model.StatusError
	}

	switch entry.Strategy {
	case model.StrategySymlink:
		if info.Mode()&fs.ModeSymlink == 0 {
			return model.StatusNotLink
		}
		link, err := os.Readlink(target)
		if err != nil {
			return model.StatusError
		}
		if link == storeFile {
			return model.StatusOK
		}
		return model.StatusWrongLink

	case model.StrategyCopy:
		equal, err := treesEqual(storeFile, target)
		if err != nil {
			return model.StatusError
		}
		if equal {
			return model.StatusOK
		}
		return model.StatusModified

	default:
		return model.StatusError
	}
}

// Status reconciles every manifest entry against worktreeRoot, in manifest
// order.
func (s *Store) Status(worktreeRoot string) ([]EntryStatus, error) {
	if err := s.Require(); err != nil {
		return nil, err
	}
	entries, err := s.ReadManifest()
	if err != nil {
		return nil, err
	}

	result := make([]EntryStatus, 0, len(entries))
	for _, e := range entries {
		result = append(result, EntryStatus{
			ManifestEntry: e,
			Status:        FileStatusOf(e, s.Path(e.Filepath), worktreeRoot),
		})
	}
	return result, nil
}
