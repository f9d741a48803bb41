// Package store implements the shared file store: a directory inside the
// common git directory holding one master copy of every tracked file, and
// a manifest listing which paths are tracked and with which strategy.
//
// Layout:
//
//	<common-git-dir>/worktree-store/
//	    manifest          one "strategy:filepath" line per tracked path
//	    manifest.lock     advisory lock serializing manifest updates
//	    <filepath>...     master copies, mirroring the worktree layout
//
// The store is shared by every worktree of the repository. Engine moves
// files between the store and worktrees; FileStatusOf reconciles them.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/ws/internal/model"
)

const (
	// ManifestName is the manifest file inside the store directory.
	ManifestName = "manifest"

	// LockName is the advisory lock file inside the store directory.
	LockName = "manifest.lock"
)

// Store is a handle on one store directory. It holds no cached state; the
// manifest is re-read by every operation.
type Store struct {
	// Dir is the store directory.
	Dir string

	// Logf receives warnings (e.g. dropped manifest lines). Nil discards them.
	Logf func(format string, args ...any)
}

// New returns a Store rooted at dir. The directory is not created.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// ManifestPath returns the path of the manifest file.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.Dir, ManifestName)
}

// Path returns the master-copy location of a tracked filepath.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.Dir, rel)
}

// Exists reports whether the store is initialized: the directory and its
// manifest file are both present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Dir)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(s.ManifestPath())
	return err == nil
}

// Ensure creates the store directory and an empty manifest if needed. An
// existing manifest is left untouched.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create store %s: %w", model.ErrManifestIO, s.Dir, err)
	}
	f, err := os.OpenFile(s.ManifestPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: create manifest: %w", model.ErrManifestIO, err)
	}
	return f.Close()
}

// Require returns model.ErrStoreNotInitialized (wrapped in a CLIError) when
// the store directory or its manifest does not exist yet.
func (s *Store) Require() error {
	if !s.Exists() {
		return model.WrapCLIError(model.ExitStoreNotInitialized,
			fmt.Sprintf("no store at %s", s.Dir), model.ErrStoreNotInitialized)
	}
	return nil
}

func (s *Store) warnf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// NormalizePath cleans a user-supplied tracked path and rejects paths that
// would escape the worktree or collide with the store's own files.
// "./a/b/" and "a/b" normalize to the same manifest key.
func NormalizePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", model.ErrInvalidPath)
	}
	if strings.ContainsAny(rel, "\r\n") {
		return "", fmt.Errorf("%w: %q contains a line break", model.ErrInvalidPath, rel)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s must be relative to the worktree root", model.ErrInvalidPath, rel)
	}

	clean := filepath.ToSlash(filepath.Clean(rel))
	switch {
	case clean == ".":
		return "", fmt.Errorf("%w: %s is the worktree root", model.ErrInvalidPath, rel)
	case clean == ".." || strings.HasPrefix(clean, "../"):
		return "", fmt.Errorf("%w: %s is outside the worktree", model.ErrInvalidPath, rel)
	case clean == ManifestName || clean == LockName:
		return "", fmt.Errorf("%w: %s is reserved by the store", model.ErrInvalidPath, rel)
	case clean == ".git" || strings.HasPrefix(clean, ".git/"):
		return "", fmt.Errorf("%w: %s is git metadata", model.ErrInvalidPath, rel)
	}
	return clean, nil
}

// pathError wraps a NormalizePath failure with its exit code.
func pathError(err error) error {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	return model.WrapCLIError(model.ExitFileNotFound, "invalid path", err)
}
