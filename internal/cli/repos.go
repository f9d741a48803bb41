// Package cli — repos.go implements the "ws repos" command group, which
// maintains the registry of known repositories shown by "ws status".
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/config"
	"github.com/shinji-kodama/ws/internal/model"
	"github.com/shinji-kodama/ws/internal/repo"
	"github.com/shinji-kodama/ws/internal/ui"
	"github.com/shinji-kodama/ws/internal/worktree"
)

// NewReposCommand creates the "repos" command group.
func NewReposCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage the repository registry",
		Long: `Manage the registry of repositories listed by "ws status".

The registry is stored in $WS_CONFIG_PATH, $XDG_CONFIG_HOME/ws/config.yaml
or ~/.config/ws/config.yaml, whichever comes first.`,
	}

	cmd.AddCommand(newReposCloneCommand())
	cmd.AddCommand(newReposAddCommand())
	cmd.AddCommand(newReposListCommand())
	cmd.AddCommand(newReposRmCommand())
	return cmd
}

func newReposCloneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clone [url]",
		Short: "Set up a bare-layout repository in the current directory",
		Long: `Clone url as a bare repository into ./.bare, ready for "ws new".
Without a url an empty bare repository is initialized.

Examples:
  mkdir app && cd app
  ws repos clone git@github.com:example/app.git
  ws new main`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
			}
			return runReposClone(worktree.NewManager(), cmd.OutOrStdout(), cwd, optionalArg(args))
		},
	}
}

// runReposClone creates dir/.bare from url.
func runReposClone(git *worktree.Manager, out io.Writer, dir, url string) error {
	bare := filepath.Join(dir, repo.BareDirName)
	if _, err := os.Lstat(bare); err == nil {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%s already exists", bare))
	}

	VerboseLog("Creating bare repository %s", bare)
	if err := git.CloneBare(bare, url); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]string{"path": bare, "url": url})
	}
	fmt.Fprintf(out, "%s %s\n", ui.RenderPass("created bare repository"), bare)
	fmt.Fprintln(out, ui.RenderMuted(`Next: run "ws new <name>" to create a worktree.`))
	return nil
}

type reposAddFlags struct {
	name string
}

func newReposAddCommand() *cobra.Command {
	flags := &reposAddFlags{}

	cmd := &cobra.Command{
		Use:   "add [path]",
		Short: "Register a repository",
		Long: `Register the repository containing path (default: the current directory).
The repository root is stored, so any worktree of it may be given. The
origin URL is recorded when the repository has one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := optionalArg(args)
			if path == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
				}
				path = cwd
			}
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			return runReposAdd(worktree.NewManager(), cmd.OutOrStdout(), cfgPath, path, flags.name)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Registry name (default: directory name of the root)")
	return cmd
}

// runReposAdd registers the repository containing path in the registry at
// cfgPath.
func runReposAdd(git *worktree.Manager, out io.Writer, cfgPath, path, name string) error {
	rc, err := repo.Resolve(git, config.ExpandHome(path))
	if err != nil {
		return err
	}
	if name == "" {
		name = filepath.Base(rc.Root)
	}

	remoteDir := rc.CommonDir
	if remoteDir == "" {
		remoteDir = rc.Root
	}
	entry := config.RepoEntry{Path: rc.Root, URL: git.RemoteURL(remoteDir, "origin")}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Add(name, entry); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, repoJSON{Name: name, RepoEntry: entry})
	}
	fmt.Fprintf(out, "%s %s (%s)\n", ui.RenderPass("registered"), name, entry.Path)
	return nil
}

// repoJSON is one registry entry in JSON output.
type repoJSON struct {
	Name string `json:"name"`
	config.RepoEntry
}

func newReposListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered repositories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			return runReposList(cmd.OutOrStdout(), cfgPath)
		},
	}
}

func runReposList(out io.Writer, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		repos := make([]repoJSON, 0, len(cfg.Repos))
		for _, name := range cfg.Names() {
			repos = append(repos, repoJSON{Name: name, RepoEntry: cfg.Repos[name]})
		}
		return printJSON(out, repos)
	}

	if len(cfg.Repos) == 0 {
		fmt.Fprintln(out, noReposMessage)
		return nil
	}
	for _, name := range cfg.Names() {
		entry := cfg.Repos[name]
		if entry.URL != "" {
			fmt.Fprintf(out, "%-20s %s (%s)\n", name, config.AbbreviateHome(entry.Path), entry.URL)
		} else {
			fmt.Fprintf(out, "%-20s %s\n", name, config.AbbreviateHome(entry.Path))
		}
	}
	return nil
}

func newReposRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Unregister a repository",
		Long:  "Remove a repository from the registry. Nothing on disk is deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			return runReposRm(cmd.OutOrStdout(), cfgPath, args[0])
		},
	}
}

func runReposRm(out io.Writer, cfgPath, name string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Remove(name); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]string{"removed": name})
	}
	fmt.Fprintf(out, "%s %s\n", ui.RenderPass("unregistered"), name)
	return nil
}

const noReposMessage = `No repositories registered. Use "ws repos add" to register one.`
