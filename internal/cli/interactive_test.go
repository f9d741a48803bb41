package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/ws/internal/config"
	"github.com/shinji-kodama/ws/internal/testutil/gitrepo"
)

// keep answers an Input prompt with its initial value.
const keep = "\x00keep"

// scriptedPrompter answers prompts from a fixed script and records the
// options and initial values it was offered.
type scriptedPrompter struct {
	t       *testing.T
	answers []any
	offered [][]string
	initial []string
}

func (p *scriptedPrompter) next() any {
	p.t.Helper()
	require.NotEmpty(p.t, p.answers, "unexpected prompt")
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a
}

func (p *scriptedPrompter) Select(_ string, options []huh.Option[string]) (string, error) {
	values := make([]string, 0, len(options))
	for _, o := range options {
		values = append(values, o.Value)
	}
	p.offered = append(p.offered, values)

	a := p.next()
	if err, ok := a.(error); ok {
		return "", err
	}
	choice := a.(string)
	require.Contains(p.t, values, choice)
	return choice, nil
}

func (p *scriptedPrompter) Input(_, _, initial string, _ bool) (string, error) {
	p.initial = append(p.initial, initial)
	a := p.next()
	if err, ok := a.(error); ok {
		return "", err
	}
	if a.(string) == keep {
		return initial, nil
	}
	return a.(string), nil
}

func (p *scriptedPrompter) Confirm(string) (bool, error) {
	a := p.next()
	if err, ok := a.(error); ok {
		return false, err
	}
	return a.(bool), nil
}

func runMenu(t *testing.T, ws *workspace, cfgPath string, answers ...any) ([]string, *scriptedPrompter, error) {
	t.Helper()
	p := &scriptedPrompter{t: t, answers: answers}
	m := &menu{p: p, ws: ws, cfgPath: cfgPath}
	argv, err := m.top()
	if err == nil {
		assert.Empty(t, p.answers, "unused answers")
	}
	return argv, p, err
}

func TestMenu_Simple(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name    string
		answers []any
		want    []string
	}{
		{"status", []any{"status"}, []string{"status"}},
		{"store status", []any{"store", "status"}, []string{"store", "status"}},
		{"store track", []any{"store", "track", "copy", ".mcp.json"}, []string{"store", "track", "-s", "copy", ".mcp.json"}},
		{"store push all", []any{"store", "push", ""}, []string{"store", "push"}},
		{"store push one", []any{"store", "push", ".env"}, []string{"store", "push", ".env"}},
		{"store pull force", []any{"store", "pull", "", true}, []string{"store", "pull", "--force"}},
		{"store pull one", []any{"store", "pull", ".env", false}, []string{"store", "pull", ".env"}},
		{"store untrack without store", []any{"store", "untrack", ".envrc"}, []string{"store", "untrack", ".envrc"}},
		{"repos clone", []any{"repos", "clone", "git@example.com:app.git"}, []string{"repos", "clone", "git@example.com:app.git"}},
		{"repos clone empty", []any{"repos", "clone", ""}, []string{"repos", "clone"}},
		{"repos add", []any{"repos", "add", "", "app"}, []string{"repos", "add", "--name", "app"}},
		{"repos add path", []any{"repos", "add", "~/src/app", ""}, []string{"repos", "add", "~/src/app"}},
		{"repos list", []any{"repos", "list"}, []string{"repos", "list"}},
		{"repos rm empty registry", []any{"repos", "rm", "app"}, []string{"repos", "rm", "app"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argv, _, err := runMenu(t, nil, cfgPath, tt.answers...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, argv)
		})
	}
}

func TestMenu_New(t *testing.T) {
	r := gitrepo.NewBare(t)

	// Defaults are not repeated on the command line.
	argv, p, err := runMenu(t, mustOpen(t, r.Main), "", "new", "feature", keep, keep, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "feature"}, argv)
	assert.Equal(t, []string{"", filepath.Join("..", "feature"), "feature", ""}, p.initial)

	// At the bare root the directory defaults to the name itself.
	_, p, err = runMenu(t, mustOpen(t, r.Root), "", "new", "feature", keep, keep, "")
	require.NoError(t, err)
	assert.Equal(t, "feature", p.initial[1])

	argv, _, err = runMenu(t, mustOpen(t, r.Main), "", "new", "hotfix", "/tmp/hotfix", "fix-123", "origin/main")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "hotfix", "-d", "/tmp/hotfix", "--branch", "fix-123", "--from", "origin/main"}, argv)
}

func TestMenu_Rm(t *testing.T) {
	r := gitrepo.NewBare(t)
	feature := r.AddWorktree("feature")
	other := r.AddWorktree("other")

	argv, p, err := runMenu(t, mustOpen(t, r.Main), "", "rm", feature)
	require.NoError(t, err)
	assert.Equal(t, []string{"rm", feature}, argv)
	// The current worktree is never offered.
	assert.ElementsMatch(t, []string{feature, other}, p.offered[1])

	_, _, err = runMenu(t, nil, "", "rm")
	require.Error(t, err)
}

func TestMenu_UntrackOffersTrackedFiles(t *testing.T) {
	r := gitrepo.NewBare(t)
	ws := mustOpen(t, r.Main)
	r.WriteFile(r.Main, ".envrc", "x")
	r.WriteFile(r.Main, ".env", "y")

	var out, errOut bytes.Buffer
	require.NoError(t, runStoreTrack(ws, &out, &errOut, "symlink", ".envrc"))
	require.NoError(t, runStoreTrack(ws, &out, &errOut, "copy", ".env"))

	argv, p, err := runMenu(t, ws, "", "store", "untrack", ".env")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "untrack", ".env"}, argv)
	assert.Equal(t, []string{".envrc", ".env"}, p.offered[2])
}

func TestMenu_UnregisterOffersNames(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{Repos: map[string]config.RepoEntry{
		"lib": {Path: "/src/lib"},
		"app": {Path: "/src/app"},
	}}))

	argv, p, err := runMenu(t, nil, cfgPath, "repos", "rm", "lib")
	require.NoError(t, err)
	assert.Equal(t, []string{"repos", "rm", "lib"}, argv)
	assert.Equal(t, []string{"app", "lib"}, p.offered[2])
}

func TestMenu_Aborted(t *testing.T) {
	_, _, err := runMenu(t, nil, "", huh.ErrUserAborted)
	assert.ErrorIs(t, err, huh.ErrUserAborted)

	_, _, err = runMenu(t, nil, "", "store", "pull", "", huh.ErrUserAborted)
	assert.ErrorIs(t, err, huh.ErrUserAborted)
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "ws store track -s copy .env", commandLine([]string{"store", "track", "-s", "copy", ".env"}))
	assert.Equal(t, `ws new "my feature"`, commandLine([]string{"new", "my feature"}))
	assert.Equal(t, `ws store untrack ""`, commandLine([]string{"store", "untrack", ""}))
}

func TestNewArgs(t *testing.T) {
	assert.Equal(t, []string{"new", "x"}, newArgs("x", "", "../x", "", ""))
	assert.Equal(t, []string{"new", "x", "-d", "y"}, newArgs("x", "y", "../x", "x", ""))
	assert.Equal(t, []string{"new", "x", "--branch", "b", "--from", "main"}, newArgs("x", "../x", "../x", "b", "main"))
}
