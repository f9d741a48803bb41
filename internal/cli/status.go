// Package cli — status.go implements the "ws status" command.
//
// The overview has three sections, each shown only when it has content:
//
//	Repositories        registered repositories, the current one marked
//	Current Repository  the worktrees of the repository containing cwd
//	Current Workspace   the store status of the current worktree
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/config"
	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/repo"
	"github.com/shinji-kodama/ws/internal/store"
	"github.com/shinji-kodama/ws/internal/ui"
)

// Repository types shown in the TYPE column.
const (
	repoTypeGit      = "git"
	repoTypeBare     = "bare"
	repoTypeNotFound = "NOT_FOUND"
)

// statusReport is everything "ws status" displays.
type statusReport struct {
	Repositories []repoStatus      `json:"repositories"`
	Current      *currentRepo      `json:"current,omitempty"`
	Workspace    *currentWorkspace `json:"workspace,omitempty"`
}

type repoStatus struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	URL     string `json:"url,omitempty"`
	Type    string `json:"type"`
	Current bool   `json:"current"`
}

type currentRepo struct {
	Name      string           `json:"name"`
	Root      string           `json:"root"`
	Bare      bool             `json:"bare"`
	Worktrees []worktreeStatus `json:"worktrees"`
}

type worktreeStatus struct {
	Path    string `json:"path"`
	RelPath string `json:"relPath"`
	Branch  string `json:"branch"`
	Head    string `json:"head"`
	Current bool   `json:"current"`
}

type currentWorkspace struct {
	Root    string              `json:"root"`
	Branch  string              `json:"branch"`
	Store   string              `json:"store"`
	Entries []store.EntryStatus `json:"entries"`
}

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show repositories, worktrees and store status",
		Long: `Show an overview of the registered repositories, the worktrees of the
current repository and the store status of the current worktree.

Outside a repository only the registry is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}

			// Outside a repository the registry is still worth showing.
			ws, err := openWorkspace()
			if err != nil {
				if !errors.Is(err, model.ErrNotARepo) {
					return err
				}
				VerboseLog("Not inside a repository: %v", err)
			}
			return runStatus(ws, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfgPath)
		},
	}
}

func runStatus(ws *workspace, out, errOut io.Writer, cfgPath string) error {
	report, err := collectStatus(ws, errOut, cfgPath)
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		return printJSON(out, report)
	}
	renderStatus(out, report)
	return nil
}

// collectStatus builds the report. ws is nil outside a repository.
func collectStatus(ws *workspace, errOut io.Writer, cfgPath string) (*statusReport, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	report := &statusReport{Repositories: []repoStatus{}}
	currentRoot := ""
	if ws != nil {
		currentRoot = ws.repo.Root
	}

	for _, name := range cfg.Names() {
		entry := cfg.Repos[name]
		canonical, err := filepath.EvalSymlinks(entry.Path)
		report.Repositories = append(report.Repositories, repoStatus{
			Name:    name,
			Path:    entry.Path,
			URL:     entry.URL,
			Type:    repoType(entry.Path),
			Current: err == nil && canonical == currentRoot,
		})
	}

	if ws == nil {
		return report, nil
	}

	name, ok := cfg.NameFor(ws.repo.Root)
	if !ok {
		name = filepath.Base(ws.repo.Root)
	}
	report.Current = &currentRepo{
		Name:      name,
		Root:      ws.repo.Root,
		Bare:      ws.repo.IsBare,
		Worktrees: []worktreeStatus{},
	}
	if ws.repo.CommonDir != "" {
		worktrees, err := ws.git.List(ws.repo.CommonDir)
		if err != nil {
			return nil, err
		}
		for _, wt := range worktrees {
			if wt.IsBare {
				continue
			}
			path := wt.Path
			if canonical, err := filepath.EvalSymlinks(path); err == nil {
				path = canonical
			}
			branch := wt.ShortBranch()
			if branch == "" {
				branch = "detached"
			}
			report.Current.Worktrees = append(report.Current.Worktrees, worktreeStatus{
				Path:    path,
				RelPath: relativeTo(ws.repo.Root, path),
				Branch:  branch,
				Head:    wt.ShortHEAD(),
				Current: path == ws.repo.WorktreeRoot,
			})
		}
		sort.Slice(report.Current.Worktrees, func(i, j int) bool {
			return report.Current.Worktrees[i].Path < report.Current.Worktrees[j].Path
		})
	}

	if ws.repo.WorktreeRoot == "" {
		return report, nil
	}
	s, err := ws.store(errOut)
	if err != nil || !s.Exists() {
		return report, nil
	}
	statuses, err := s.Status(ws.repo.WorktreeRoot)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return report, nil
	}
	branch, err := ws.git.GetCurrentBranch(ws.repo.WorktreeRoot)
	if err != nil {
		branch = "HEAD"
	}
	report.Workspace = &currentWorkspace{
		Root:    ws.repo.WorktreeRoot,
		Branch:  branch,
		Store:   s.Dir,
		Entries: statuses,
	}
	return report, nil
}

// renderStatus prints the text form of the report.
func renderStatus(out io.Writer, report *statusReport) {
	sections := 0
	section := func(title string) {
		if sections > 0 {
			fmt.Fprintln(out)
		}
		sections++
		fmt.Fprintln(out, ui.SectionHeader(title))
	}

	if len(report.Repositories) > 0 {
		section("Repositories")
		tbl := &ui.Table{Headers: []string{"NAME", "PATH", "TYPE"}, Indent: 2}
		for _, r := range report.Repositories {
			tbl.AddRow(r.Current,
				ui.Plain(r.Name),
				ui.Plain(config.AbbreviateHome(r.Path)),
				ui.Styled(r.Type, ui.RepoTypeStyle(r.Type)),
			)
		}
		tbl.Render(out)
	}

	if cur := report.Current; cur != nil {
		section("Current Repository: " + cur.Name)
		fmt.Fprintf(out, "  Path: %s\n", config.AbbreviateHome(cur.Root))
		if len(cur.Worktrees) > 0 {
			fmt.Fprintln(out, "  Worktrees:")
		}
		for i, wt := range cur.Worktrees {
			connector := ui.TreeBranch
			if i == len(cur.Worktrees)-1 {
				connector = ui.TreeLast
			}
			marker := " "
			if wt.Current {
				marker = ui.MarkerStyle.Render(ui.Marker)
			}
			fmt.Fprintf(out, "    %s %s %s    %s\n", connector, marker, wt.RelPath,
				ui.RenderMuted(fmt.Sprintf("[%s] %s", wt.Branch, wt.Head)))
		}
	}

	if w := report.Workspace; w != nil {
		section(fmt.Sprintf("Current Workspace: %s [%s]", filepath.Base(w.Root), w.Branch))
		storeTable(w.Entries, 2).Render(out)
	}

	if sections == 0 {
		fmt.Fprintln(out, noReposMessage)
	}
}

// repoType classifies a registered repository path.
func repoType(path string) string {
	if _, err := os.Stat(path); err != nil {
		return repoTypeNotFound
	}
	if info, err := os.Stat(filepath.Join(path, repo.BareDirName)); err == nil && info.IsDir() {
		return repoTypeBare
	}
	return repoTypeGit
}

// relativeTo returns path relative to root, "." for root itself, or the
// home-abbreviated path when it lies outside root.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return config.AbbreviateHome(path)
	}
	return rel
}
