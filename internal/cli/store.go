// Package cli — store.go implements the "ws store" command group.
//
// The store holds one master copy of every tracked file. Subcommands:
//
//	track    register a worktree file and copy it into the store
//	status   reconcile every tracked file against the current worktree
//	push     copy Copy-tracked files from the worktree into the store
//	pull     materialize tracked files from the store into the worktree
//	untrack  stop tracking a file and restore real copies in all worktrees
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/store"
	"github.com/shinji-kodama/ws/internal/ui"
)

// NewStoreCommand creates the "store" command group.
func NewStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Share untracked files between worktrees",
		Long: `Manage the shared file store of the current repository.

Tracked files use one of two strategies:
  symlink  the worktree path becomes a link to the store's master copy
  copy     each worktree keeps its own copy; use push and pull to sync

Examples:
  ws store track -s symlink .envrc
  ws store track -s copy .mcp.json
  ws store status
  ws store push .mcp.json
  ws store pull --force
  ws store untrack .envrc`,
	}

	cmd.AddCommand(newStoreTrackCommand())
	cmd.AddCommand(newStoreStatusCommand())
	cmd.AddCommand(newStorePushCommand())
	cmd.AddCommand(newStorePullCommand())
	cmd.AddCommand(newStoreUntrackCommand())
	return cmd
}

type storeTrackFlags struct {
	strategy string
}

func newStoreTrackCommand() *cobra.Command {
	flags := &storeTrackFlags{}

	cmd := &cobra.Command{
		Use:   "track -s <symlink|copy> <file>",
		Short: "Start tracking a file or directory",
		Long: `Copy a file or directory of the current worktree into the store and
record it in the manifest. With the symlink strategy the worktree path is
then replaced by a link to the store's copy.

The path is relative to the worktree root. Tracking a path again replaces
its strategy and refreshes the store's copy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runStoreTrack(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.strategy, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.strategy, "strategy", "s", "", "Sync strategy: symlink or copy (required)")
	_ = cmd.MarkFlagRequired("strategy")
	_ = cmd.RegisterFlagCompletionFunc("strategy", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(model.StrategySymlink), string(model.StrategyCopy)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runStoreTrack(ws *workspace, out, errOut io.Writer, strategyFlag, file string) error {
	strategy, err := model.ParseStrategy(strategyFlag)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidStrategy, "cannot track", err)
	}
	if _, err := ws.repo.RequireWorktree(); err != nil {
		return err
	}
	engine, err := ws.engine(errOut)
	if err != nil {
		return err
	}

	VerboseLog("Tracking %s with strategy %s", file, strategy)
	result, err := engine.Track(strategy, file)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, result)
	}
	verb := "tracked"
	if result.Retracked {
		verb = "re-tracked"
	}
	fmt.Fprintf(out, "%s %s (%s)\n", ui.RenderPass(verb), result.Entry.Filepath, result.Entry.Strategy)
	if result.Linked {
		fmt.Fprintf(out, "  %s now links to %s\n", result.Entry.Filepath, engine.Store.Path(result.Entry.Filepath))
	}
	return nil
}

func newStoreStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every tracked file",
		Long: `Compare every tracked file with the current worktree.

  OK              in sync
  MISSING         absent from the worktree (run pull)
  MISSING(store)  the store's copy is gone
  MODIFIED        copy differs from the store (run push or pull --force)
  NOT_LINK        symlink entry is a regular file (run pull --force)
  WRONG_LINK      symlink points somewhere else
  ERROR           the worktree path could not be inspected
  (store only)    no current worktree to compare against`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runStoreStatus(ws, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runStoreStatus(ws *workspace, out, errOut io.Writer) error {
	s, err := ws.store(errOut)
	if err != nil {
		return err
	}
	statuses, err := s.Status(ws.repo.WorktreeRoot)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Store    string              `json:"store"`
			Worktree string              `json:"worktree,omitempty"`
			Entries  []store.EntryStatus `json:"entries"`
		}
		if statuses == nil {
			statuses = []store.EntryStatus{}
		}
		return printJSON(out, resultJSON{Store: s.Dir, Worktree: ws.repo.WorktreeRoot, Entries: statuses})
	}

	if len(statuses) == 0 {
		fmt.Fprintln(out, "No files tracked.")
		return nil
	}
	storeTable(statuses, 0).Render(out)
	return nil
}

// storeTable builds the STRATEGY / FILE / STATUS table.
func storeTable(statuses []store.EntryStatus, indent int) *ui.Table {
	tbl := &ui.Table{Headers: []string{"STRATEGY", "FILE", "STATUS"}, Indent: indent}
	for _, st := range statuses {
		tbl.AddRow(false,
			ui.Plain(st.Strategy.String()),
			ui.Plain(st.Filepath),
			ui.Styled(st.Status.String(), ui.StatusStyle(st.Status)),
		)
	}
	return tbl
}

func newStorePushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push [file]",
		Short: "Copy worktree changes of copy-tracked files into the store",
		Long: `Copy Copy-tracked files from the current worktree into the store,
replacing the store's copy. Symlink-tracked files need no push.

With a file argument only that file is pushed; it must be copy-tracked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runStorePush(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), optionalArg(args))
		},
	}
}

func runStorePush(ws *workspace, out, errOut io.Writer, file string) error {
	if _, err := ws.repo.RequireWorktree(); err != nil {
		return err
	}
	engine, err := ws.engine(errOut)
	if err != nil {
		return err
	}

	outcomes, err := engine.Push(file)
	return finishSync(out, errOut, "pushed", "Nothing to push.", outcomes, err)
}

type storePullFlags struct {
	force bool
}

func newStorePullCommand() *cobra.Command {
	flags := &storePullFlags{}

	cmd := &cobra.Command{
		Use:   "pull [file]",
		Short: "Materialize tracked files from the store into the worktree",
		Long: `Create every tracked file that is missing from the current worktree:
symlink entries as links to the store, copy entries as copies.

Existing paths are left alone unless --force is given, in which case they
are replaced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runStorePull(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), optionalArg(args), flags.force)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Replace paths that already exist")
	return cmd
}

func runStorePull(ws *workspace, out, errOut io.Writer, file string, force bool) error {
	if _, err := ws.repo.RequireWorktree(); err != nil {
		return err
	}
	engine, err := ws.engine(errOut)
	if err != nil {
		return err
	}

	outcomes, err := engine.Pull(file, force)
	return finishSync(out, errOut, "pulled", "Nothing to pull.", outcomes, err)
}

// finishSync reports push or pull outcomes. Outcomes are printed even when
// err reports failed entries.
func finishSync(out, errOut io.Writer, verb, nothing string, outcomes []model.Outcome, err error) error {
	if outcomes == nil && err != nil {
		return err
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Outcomes []outcomeJSON `json:"outcomes"`
		}
		if jsonErr := printJSON(out, resultJSON{Outcomes: outcomesJSON(outcomes)}); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	reportOutcomes(out, errOut, verb, outcomes)
	if err == nil && model.CountOutcomes(outcomes, model.OutcomeApplied) == 0 {
		fmt.Fprintln(out, nothing)
	}
	return err
}

func newStoreUntrackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <file>",
		Short: "Stop tracking a file",
		Long: `Remove a file from the store. For a symlink-tracked file, every worktree
that currently links to the store gets a real copy first, so no worktree is
left with a dangling link. The store's copy is then deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runStoreUntrack(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
		},
	}
}

func runStoreUntrack(ws *workspace, out, errOut io.Writer, file string) error {
	engine, err := ws.engine(errOut)
	if err != nil {
		return err
	}

	outcomes, err := engine.Untrack(file)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		type resultJSON struct {
			Untracked string        `json:"untracked"`
			Restored  []outcomeJSON `json:"restored"`
		}
		clean, _ := store.NormalizePath(file)
		return printJSON(out, resultJSON{Untracked: clean, Restored: outcomesJSON(outcomes)})
	}

	reportOutcomes(out, errOut, "restored", outcomes)
	fmt.Fprintf(out, "%s %s\n", ui.RenderPass("untracked"), file)
	return nil
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
