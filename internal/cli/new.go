// Package cli — new.go implements the "ws new" command.
//
// Orchestration steps:
//  1. Determine the worktree directory and branch
//  2. Create the Git worktree (existing branch, new branch, or orphan)
//  3. Provision the new worktree from the store, if one exists
//  4. Output results (text or JSON)
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

// newFlags holds the flag values for the new command.
type newFlags struct {
	dir    string // --dir: worktree directory
	branch string // --branch: branch to check out or create
	from   string // --from: start point for a new branch
}

// NewNewCommand creates the "new" cobra command.
func NewNewCommand() *cobra.Command {
	flags := &newFlags{}

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a worktree and provision it from the store",
		Long: `Create a new Git worktree and materialize every file of the store in it.

The branch defaults to <name>. An existing branch is checked out; otherwise
a new branch is created from --from (default: HEAD). In a repository
without commits an orphan branch is created.

The directory defaults to <name> next to the current worktree, or under the
repository root when run from the root of a bare layout.

Examples:
  ws new feature-auth
  ws new hotfix --from origin/main
  ws new review -d /tmp/review --branch pr-42`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runNew(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.dir, "dir", "d", "", "Worktree directory (default: ../<name>)")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "Branch name (default: <name>)")
	cmd.Flags().StringVar(&flags.from, "from", "", "Start point of a new branch (default: HEAD)")

	return cmd
}

// runNew creates the worktree and applies the store to it.
func runNew(ws *workspace, out, errOut io.Writer, name string, flags *newFlags) error {
	if name == "" {
		return model.NewCLIError(model.ExitGeneralError, "worktree name must not be empty")
	}
	if ws.repo.CommonDir == "" {
		return model.WrapCLIError(model.ExitNotARepo,
			"cannot locate the common git directory", model.ErrNotARepo)
	}

	// Step 1: Determine worktree directory and branch.
	dir, err := newWorktreeDir(ws, name, flags.dir)
	if err != nil {
		return err
	}
	branch := flags.branch
	if branch == "" {
		branch = name
	}
	VerboseLog("Worktree path: %s", dir)
	VerboseLog("Branch: %s", branch)

	// Step 2: Create Git worktree.
	if err := ws.git.Add(ws.repo.CommonDir, branch, dir, flags.from); err != nil {
		return err
	}
	VerboseLog("Git worktree created successfully")

	// Step 3: Provision from the store. A repository without a store
	// simply gets a bare worktree.
	var outcomes []model.Outcome
	engine, err := ws.engine(errOut)
	if err != nil {
		return err
	}
	if engine.Store.Exists() {
		outcomes, err = engine.Apply(dir)
		if err != nil {
			return err
		}
	} else {
		VerboseLog("No store found, skipping provisioning")
	}

	// Step 4: Output results.
	if IsJSONOutput() {
		type resultJSON struct {
			Path     string        `json:"path"`
			Branch   string        `json:"branch"`
			Outcomes []outcomeJSON `json:"outcomes"`
		}
		return printJSON(out, resultJSON{Path: dir, Branch: branch, Outcomes: outcomesJSON(outcomes)})
	}

	fmt.Fprintf(out, "%s %s [%s]\n", ui.RenderPass("created worktree"), dir, branch)
	reportOutcomes(out, errOut, "applied", outcomes)
	return nil
}

// newWorktreeDir returns the absolute directory for a new worktree.
func newWorktreeDir(ws *workspace, name, explicit string) (string, error) {
	if explicit != "" {
		dir, err := filepath.Abs(config.ExpandHome(explicit))
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError, "failed to resolve worktree path", err)
		}
		return dir, nil
	}
	if ws.repo.WorktreeRoot == "" {
		return filepath.Join(ws.repo.Dir, name), nil
	}
	return filepath.Join(filepath.Dir(ws.repo.WorktreeRoot), name), nil
}
