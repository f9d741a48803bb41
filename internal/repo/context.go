// Package repo resolves where the current command runs: the canonical
// repository root, the common git directory, the current worktree (if any)
// and the store directory shared by every worktree.
//
// Two on-disk layouts are supported:
//
//	bare layout:   <root>/.bare (bare repo) + <root>/<worktree>...
//	clone layout:  <root>/.git  (regular repo) + linked worktrees anywhere
//
// The result is a Context value, built once per command and passed down
// explicitly; nothing below the CLI layer reads the process working
// directory.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/ws/internal/model"
)

const (
	// BareDirName is the directory name of the bare repository in the bare layout.
	BareDirName = ".bare"

	// GitDirName is the metadata directory of a conventional clone.
	GitDirName = ".git"

	// StoreDirName is the store subdirectory inside the common git directory.
	StoreDirName = "worktree-store"
)

// Git is the subset of the version-control collaborator the resolver needs.
// *worktree.Manager implements it.
type Git interface {
	CommonDir(path string) (string, error)
	TopLevel(path string) (string, error)
}

// Context describes the repository a command operates on.
type Context struct {
	// Dir is the canonical directory the context was resolved from.
	Dir string `json:"dir"`

	// Root is the canonical repository root.
	Root string `json:"root"`

	// CommonDir is the canonical git directory shared by all worktrees.
	// Empty when only the top-level fallback succeeded.
	CommonDir string `json:"commonDir,omitempty"`

	// WorktreeRoot is the canonical top level of the worktree containing
	// Dir. Empty at the root of a bare layout.
	WorktreeRoot string `json:"worktreeRoot,omitempty"`

	// IsBare reports the bare layout (Root/.bare).
	IsBare bool `json:"bare"`
}

// Resolve builds the Context for dir. The repository root is determined
// by the first step that succeeds:
//
//  1. the common git directory is named .bare: the root is its parent
//  2. the common git directory is named .git: the root is its parent
//  3. the canonical top level of the current worktree
//  4. dir itself contains a valid .bare directory (one with a HEAD file)
//
// If every step fails, the error wraps model.ErrNotARepo.
func Resolve(git Git, dir string) (*Context, error) {
	dir, err := canonicalize(dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitNotARepo,
			fmt.Sprintf("cannot resolve %s", dir), model.ErrNotARepo)
	}

	ctx := &Context{Dir: dir}

	if common, err := git.CommonDir(dir); err == nil {
		if canonical, err := canonicalize(common); err == nil {
			ctx.CommonDir = canonical
			switch filepath.Base(canonical) {
			case BareDirName:
				ctx.Root = filepath.Dir(canonical)
				ctx.IsBare = true
			case GitDirName:
				ctx.Root = filepath.Dir(canonical)
			}
		}
	}

	if top, err := git.TopLevel(dir); err == nil {
		if canonical, err := canonicalize(top); err == nil {
			ctx.WorktreeRoot = canonical
			if ctx.Root == "" {
				ctx.Root = canonical
			}
		}
	}

	if ctx.Root == "" && IsBareRoot(dir) {
		ctx.Root = dir
		ctx.IsBare = true
		if ctx.CommonDir == "" {
			ctx.CommonDir = filepath.Join(dir, BareDirName)
		}
	}

	if ctx.Root == "" {
		return nil, model.WrapCLIError(model.ExitNotARepo,
			"run this command inside a git repository or worktree", model.ErrNotARepo)
	}
	return ctx, nil
}

// StoreDir returns the store directory: the common git directory plus
// StoreDirName. It is derived from the common directory, never the
// per-worktree one, so every worktree sees the same store.
func (c *Context) StoreDir() (string, error) {
	if c.CommonDir == "" {
		return "", model.WrapCLIError(model.ExitNotARepo,
			"cannot locate the common git directory", model.ErrNotARepo)
	}
	return filepath.Join(c.CommonDir, StoreDirName), nil
}

// RequireWorktree returns the worktree root or an error when the command
// runs outside any worktree (e.g. at the root of a bare layout).
func (c *Context) RequireWorktree() (string, error) {
	if c.WorktreeRoot == "" {
		return "", model.WrapCLIError(model.ExitNotARepo,
			"run this command inside a worktree", model.ErrNotARepo)
	}
	return c.WorktreeRoot, nil
}

// IsBareRoot reports whether dir directly contains a bare repository
// directory with its HEAD file.
func IsBareRoot(dir string) bool {
	bare := filepath.Join(dir, BareDirName)
	info, err := os.Stat(bare)
	if err != nil || !info.IsDir() {
		return false
	}
	head, err := os.Stat(filepath.Join(bare, "HEAD"))
	return err == nil && head.Mode().IsRegular()
}

// canonicalize returns the absolute path with all symlinks resolved.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
