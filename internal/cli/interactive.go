// Package cli — interactive.go implements "ws interactive", a menu-driven
// front end for the other commands.
//
// The menus only collect answers. They build an ordinary argument list,
// echo it as "> ws ..." on stderr and run it through a fresh root command,
// so every interactive action is exactly reproducible from the shell.
package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/config"
	"github.com/shinji-kodama/ws/internal/model"
)

// prompter asks the user for one value at a time.
type prompter interface {
	// Select returns the value of the chosen option.
	Select(title string, options []huh.Option[string]) (string, error)

	// Input returns the entered text, starting from initial. An empty
	// answer is rejected when required is set.
	Input(title, description, initial string, required bool) (string, error)

	Confirm(title string) (bool, error)
}

// huhPrompter prompts on the terminal with huh forms.
type huhPrompter struct{}

func (huhPrompter) Select(title string, options []huh.Option[string]) (string, error) {
	var value string
	err := runForm(huh.NewSelect[string]().
		Title(title).
		Options(options...).
		Value(&value))
	return value, err
}

func (huhPrompter) Input(title, description, initial string, required bool) (string, error) {
	value := initial
	input := huh.NewInput().
		Title(title).
		Description(description).
		Value(&value)
	if required {
		input = input.Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("a value is required")
			}
			return nil
		})
	}
	err := runForm(input)
	return strings.TrimSpace(value), err
}

func (huhPrompter) Confirm(title string) (bool, error) {
	var value bool
	err := runForm(huh.NewConfirm().
		Title(title).
		Value(&value))
	return value, err
}

func runForm(field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).WithTheme(huh.ThemeCharm()).Run()
}

// NewInteractiveCommand creates the "interactive" cobra command.
func NewInteractiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Choose a command from menus",
		Long: `Pick a command and its arguments from menus. The resulting command line
is printed before it runs, so it can be repeated directly next time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			// Menus that need a repository fall back to free text input.
			ws, err := openWorkspace()
			if err != nil && !errors.Is(err, model.ErrNotARepo) {
				return err
			}

			m := &menu{p: huhPrompter{}, ws: ws, cfgPath: cfgPath}
			argv, err := m.top()
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return model.WrapCLIError(model.ExitUserCancelled, "cancelled", err)
				}
				return err
			}
			return dispatch(cmd.OutOrStdout(), cmd.ErrOrStderr(), argv)
		},
	}
}

// dispatch echoes argv and runs it on a new root command. Global flags
// are forwarded because building the root resets them.
func dispatch(out, errOut io.Writer, argv []string) error {
	fmt.Fprintf(errOut, "> %s\n", commandLine(argv))

	if jsonOutput {
		argv = append(argv, "--json")
	}
	if verbose {
		argv = append(argv, "--verbose")
	}

	root := NewRootCommand()
	root.SetArgs(argv)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}

// commandLine renders argv as a shell command line.
func commandLine(argv []string) string {
	parts := make([]string, 0, len(argv)+1)
	parts = append(parts, "ws")
	for _, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'$\\") {
			arg = strconv.Quote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// menu walks the user from the top-level menu to one command line.
type menu struct {
	p       prompter
	ws      *workspace // nil outside a repository
	cfgPath string
}

func (m *menu) top() ([]string, error) {
	choice, err := m.p.Select("Select a command", []huh.Option[string]{
		huh.NewOption("new       Create a worktree", "new"),
		huh.NewOption("rm        Remove a worktree", "rm"),
		huh.NewOption("status    Show the overview", "status"),
		huh.NewOption("store     Manage shared files", "store"),
		huh.NewOption("repos     Manage the repository registry", "repos"),
	})
	if err != nil {
		return nil, err
	}

	switch choice {
	case "new":
		return m.newWorktree()
	case "rm":
		return m.removeWorktree()
	case "status":
		return []string{"status"}, nil
	case "store":
		return m.store()
	case "repos":
		return m.repos()
	default:
		return nil, fmt.Errorf("unknown command %q", choice)
	}
}

func (m *menu) newWorktree() ([]string, error) {
	name, err := m.p.Input("Worktree name", "Also the default branch name", "", true)
	if err != nil {
		return nil, err
	}
	defaultDir := m.defaultNewDir(name)
	dir, err := m.p.Input("Directory", "", defaultDir, false)
	if err != nil {
		return nil, err
	}
	branch, err := m.p.Input("Branch", "", name, false)
	if err != nil {
		return nil, err
	}
	from, err := m.p.Input("Start point", "Base of a new branch (empty: HEAD)", "", false)
	if err != nil {
		return nil, err
	}
	return newArgs(name, dir, defaultDir, branch, from), nil
}

// defaultNewDir mirrors the directory "ws new" picks, relative to cwd.
func (m *menu) defaultNewDir(name string) string {
	if m.ws != nil && m.ws.repo.WorktreeRoot == "" {
		return name
	}
	return filepath.Join("..", name)
}

// newArgs builds "new" arguments, leaving out values equal to defaults.
func newArgs(name, dir, defaultDir, branch, from string) []string {
	argv := []string{"new", name}
	if dir != "" && dir != defaultDir {
		argv = append(argv, "-d", dir)
	}
	if branch != "" && branch != name {
		argv = append(argv, "--branch", branch)
	}
	if from != "" {
		argv = append(argv, "--from", from)
	}
	return argv
}

func (m *menu) removeWorktree() ([]string, error) {
	if m.ws == nil || m.ws.repo.CommonDir == "" {
		return nil, model.WrapCLIError(model.ExitNotARepo,
			"run this command inside a git repository or worktree", model.ErrNotARepo)
	}
	worktrees, err := m.ws.git.List(m.ws.repo.CommonDir)
	if err != nil {
		return nil, err
	}

	var options []huh.Option[string]
	for _, wt := range worktrees {
		if wt.IsBare {
			continue
		}
		path := wt.Path
		if canonical, err := filepath.EvalSymlinks(path); err == nil {
			path = canonical
		}
		if path == m.ws.repo.WorktreeRoot || path == m.ws.repo.Root {
			continue
		}
		label := fmt.Sprintf("%s  [%s]", config.AbbreviateHome(path), wt.ShortBranch())
		options = append(options, huh.NewOption(label, path))
	}
	if len(options) == 0 {
		return nil, model.NewCLIError(model.ExitGeneralError, "no other worktrees to remove")
	}

	path, err := m.p.Select("Select a worktree to remove", options)
	if err != nil {
		return nil, err
	}
	return []string{"rm", path}, nil
}

func (m *menu) store() ([]string, error) {
	choice, err := m.p.Select("Select a store command", []huh.Option[string]{
		huh.NewOption("track     Start sharing a file", "track"),
		huh.NewOption("status    Show tracked files", "status"),
		huh.NewOption("push      Copy worktree changes into the store", "push"),
		huh.NewOption("pull      Restore files from the store", "pull"),
		huh.NewOption("untrack   Stop sharing a file", "untrack"),
	})
	if err != nil {
		return nil, err
	}

	switch choice {
	case "track":
		strategy, err := m.p.Select("Select a strategy", []huh.Option[string]{
			huh.NewOption("symlink   One shared copy, linked into every worktree", string(model.StrategySymlink)),
			huh.NewOption("copy      Independent copy per worktree", string(model.StrategyCopy)),
		})
		if err != nil {
			return nil, err
		}
		file, err := m.p.Input("File", "Path relative to the worktree root", "", true)
		if err != nil {
			return nil, err
		}
		return []string{"store", "track", "-s", strategy, file}, nil
	case "status":
		return []string{"store", "status"}, nil
	case "push":
		file, err := m.p.Input("File", "Leave empty to push every copy-tracked file", "", false)
		if err != nil {
			return nil, err
		}
		return withOptional([]string{"store", "push"}, file), nil
	case "pull":
		file, err := m.p.Input("File", "Leave empty to pull every tracked file", "", false)
		if err != nil {
			return nil, err
		}
		force, err := m.p.Confirm("Overwrite existing files?")
		if err != nil {
			return nil, err
		}
		return pullArgs(file, force), nil
	case "untrack":
		return m.untrack()
	default:
		return nil, fmt.Errorf("unknown store command %q", choice)
	}
}

// untrack offers the tracked files when the manifest can be read.
func (m *menu) untrack() ([]string, error) {
	var options []huh.Option[string]
	if m.ws != nil {
		if s, err := m.ws.store(io.Discard); err == nil && s.Exists() {
			if entries, err := s.ReadManifest(); err == nil {
				for _, e := range entries {
					options = append(options, huh.NewOption(e.String(), e.Filepath))
				}
			}
		}
	}

	var file string
	var err error
	if len(options) > 0 {
		file, err = m.p.Select("Select a file to untrack", options)
	} else {
		file, err = m.p.Input("File", "Path relative to the worktree root", "", true)
	}
	if err != nil {
		return nil, err
	}
	return []string{"store", "untrack", file}, nil
}

func pullArgs(file string, force bool) []string {
	argv := []string{"store", "pull"}
	if force {
		argv = append(argv, "--force")
	}
	return withOptional(argv, file)
}

func (m *menu) repos() ([]string, error) {
	choice, err := m.p.Select("Select a repos command", []huh.Option[string]{
		huh.NewOption("clone     Set up a bare repository here", "clone"),
		huh.NewOption("add       Register a repository", "add"),
		huh.NewOption("list      List registered repositories", "list"),
		huh.NewOption("rm        Unregister a repository", "rm"),
	})
	if err != nil {
		return nil, err
	}

	switch choice {
	case "clone":
		url, err := m.p.Input("Repository URL", "Leave empty to initialize an empty repository", "", false)
		if err != nil {
			return nil, err
		}
		return withOptional([]string{"repos", "clone"}, url), nil
	case "add":
		path, err := m.p.Input("Path", "Leave empty for the current directory", "", false)
		if err != nil {
			return nil, err
		}
		name, err := m.p.Input("Name", "Leave empty for the directory name", "", false)
		if err != nil {
			return nil, err
		}
		argv := withOptional([]string{"repos", "add"}, path)
		if name != "" {
			argv = append(argv, "--name", name)
		}
		return argv, nil
	case "list":
		return []string{"repos", "list"}, nil
	case "rm":
		return m.unregister()
	default:
		return nil, fmt.Errorf("unknown repos command %q", choice)
	}
}

func (m *menu) unregister() ([]string, error) {
	var options []huh.Option[string]
	if cfg, err := config.Load(m.cfgPath); err == nil {
		for _, name := range cfg.Names() {
			options = append(options, huh.NewOption(name, name))
		}
	}

	var name string
	var err error
	if len(options) > 0 {
		name, err = m.p.Select("Select a repository to unregister", options)
	} else {
		name, err = m.p.Input("Name", "", "", true)
	}
	if err != nil {
		return nil, err
	}
	return []string{"repos", "rm", name}, nil
}

func withOptional(argv []string, arg string) []string {
	if arg == "" {
		return argv
	}
	return append(argv, arg)
}
