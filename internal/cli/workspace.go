package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/repo"
	"github.com/shinji-kodama/ws/internal/store"
	"github.com/shinji-kodama/ws/internal/ui"
	"github.com/shinji-kodama/ws/internal/worktree"
)

// workspace is the resolved repository a command runs against, together
// with the git collaborator used to resolve it.
type workspace struct {
	git  *worktree.Manager
	repo *repo.Context
}

// openWorkspace resolves the repository containing the working directory.
func openWorkspace() (*workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}
	return openWorkspaceAt(cwd)
}

// openWorkspaceAt resolves the repository containing dir.
func openWorkspaceAt(dir string) (*workspace, error) {
	git := worktree.NewManager()
	rc, err := repo.Resolve(git, dir)
	if err != nil {
		return nil, err
	}
	VerboseLog("Repository root: %s (bare layout: %t)", rc.Root, rc.IsBare)
	VerboseLog("Common git directory: %s", rc.CommonDir)
	if rc.WorktreeRoot != "" {
		VerboseLog("Worktree: %s", rc.WorktreeRoot)
	}
	return &workspace{git: git, repo: rc}, nil
}

// store returns the repository's store. Warnings go to errOut.
func (w *workspace) store(errOut io.Writer) (*store.Store, error) {
	dir, err := w.repo.StoreDir()
	if err != nil {
		return nil, err
	}
	VerboseLog("Store directory: %s", dir)

	s := store.New(dir)
	s.Logf = func(format string, args ...any) {
		fmt.Fprintln(errOut, ui.RenderWarn(fmt.Sprintf(format, args...)))
	}
	return s, nil
}

// engine returns a sync engine for the current worktree. Untrack restores
// every worktree listed by git.
func (w *workspace) engine(errOut io.Writer) (*store.Engine, error) {
	s, err := w.store(errOut)
	if err != nil {
		return nil, err
	}
	return &store.Engine{
		Store:        s,
		WorktreeRoot: w.repo.WorktreeRoot,
		GitDir:       w.repo.CommonDir,
		Worktrees:    w.git,
	}, nil
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode output", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// outcomeJSON is the JSON form of a model.Outcome; the error is flattened
// to its message.
type outcomeJSON struct {
	model.Outcome
	Error string `json:"error,omitempty"`
}

func outcomesJSON(outcomes []model.Outcome) []outcomeJSON {
	result := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		j := outcomeJSON{Outcome: o}
		if o.Err != nil {
			j.Error = o.Err.Error()
		}
		result = append(result, j)
	}
	return result
}

// reportOutcomes prints applied entries to out and skipped or failed ones
// to errOut. verb describes the applied action ("pushed", "pulled").
func reportOutcomes(out, errOut io.Writer, verb string, outcomes []model.Outcome) {
	for _, o := range outcomes {
		target := o.Path
		if o.Worktree != "" {
			target = fmt.Sprintf("%s in %s", o.Path, o.Worktree)
		}
		switch o.Kind {
		case model.OutcomeApplied:
			fmt.Fprintf(out, "%s %s (%s)\n", ui.RenderPass(verb), target, o.Strategy)
		case model.OutcomeSkipped:
			fmt.Fprintln(errOut, ui.RenderWarn(fmt.Sprintf("skipped %s: %s", target, o.Reason)))
		case model.OutcomeFailed:
			fmt.Fprintln(errOut, ui.RenderFail(fmt.Sprintf("%s: %v", target, o.Err)))
		}
	}
}
