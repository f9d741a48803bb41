// Package cli — rm.go implements the "ws rm" command.
//
// The store's master copies are not affected: symlinked files inside the
// removed worktree are only links.
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/config"
	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/ui"
)

// rmFlags holds the flag values for the rm command.
type rmFlags struct {
	// force removes worktrees with uncommitted changes.
	force bool
}

// NewRmCommand creates the "rm" cobra command.
func NewRmCommand() *cobra.Command {
	flags := &rmFlags{}

	cmd := &cobra.Command{
		Use:   "rm <directory>",
		Short: "Remove a worktree",
		Long: `Remove a Git worktree and its directory.

Git refuses to remove a worktree with uncommitted or untracked changes;
use --force to remove it anyway. Files symlinked from the store are links,
so the store keeps its copies.

Examples:
  ws rm ../feature-auth
  ws rm --force review`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runRm(ws, cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove even with uncommitted changes")

	return cmd
}

// runRm removes the worktree at dir.
func runRm(ws *workspace, out io.Writer, dir string, flags *rmFlags) error {
	if ws.repo.CommonDir == "" {
		return model.WrapCLIError(model.ExitNotARepo,
			"cannot locate the common git directory", model.ErrNotARepo)
	}

	// git runs from the common directory, so relative paths must be
	// resolved against the caller's directory first.
	path := config.ExpandHome(dir)
	if !filepath.IsAbs(path) {
		path = filepath.Join(ws.repo.Dir, path)
	}
	path = filepath.Clean(path)
	VerboseLog("Removing worktree %s (force: %t)", path, flags.force)

	if err := ws.git.Remove(ws.repo.CommonDir, path, flags.force); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]string{"removed": path})
	}
	fmt.Fprintf(out, "%s %s\n", ui.RenderPass("removed worktree"), path)
	return nil
}
