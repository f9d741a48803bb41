package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/ws/internal/model"
)

// TestFileStatusOf walks every status the reconciler can report.
func TestFileStatusOf(t *testing.T) {
	link := model.ManifestEntry{Strategy: model.StrategySymlink, Filepath: ".envrc"}
	copied := model.ManifestEntry{Strategy: model.StrategyCopy, Filepath: "conf"}

	setup := func(t *testing.T) (store, wt string) {
		t.Helper()
		base := t.TempDir()
		store = filepath.Join(base, "store")
		wt = filepath.Join(base, "wt")
		writeFile(t, store, ".envrc", "E")
		writeFile(t, store, "conf/a", "A")
		require.NoError(t, os.MkdirAll(wt, 0o755))
		return store, wt
	}

	t.Run("missing store copy wins", func(t *testing.T) {
		store, wt := setup(t)
		other := model.ManifestEntry{Strategy: model.StrategyCopy, Filepath: "nope"}
		assert.Equal(t, model.StatusMissingStore, FileStatusOf(other, filepath.Join(store, "nope"), wt))
		assert.Equal(t, model.StatusMissingStore, FileStatusOf(other, filepath.Join(store, "nope"), ""))
	})

	t.Run("store only without a worktree", func(t *testing.T) {
		store, _ := setup(t)
		assert.Equal(t, model.StatusStoreOnly, FileStatusOf(link, filepath.Join(store, ".envrc"), ""))
	})

	t.Run("missing in worktree", func(t *testing.T) {
		store, wt := setup(t)
		assert.Equal(t, model.StatusMissing, FileStatusOf(link, filepath.Join(store, ".envrc"), wt))
		assert.Equal(t, model.StatusMissing, FileStatusOf(copied, filepath.Join(store, "conf"), wt))
	})

	t.Run("symlink ok", func(t *testing.T) {
		store, wt := setup(t)
		storeFile := filepath.Join(store, ".envrc")
		require.NoError(t, os.Symlink(storeFile, filepath.Join(wt, ".envrc")))
		assert.Equal(t, model.StatusOK, FileStatusOf(link, storeFile, wt))

		// Content edits through the link are never drift.
		require.NoError(t, os.WriteFile(storeFile, []byte("changed through the link"), 0o644))
		assert.Equal(t, model.StatusOK, FileStatusOf(link, storeFile, wt))
	})

	t.Run("not a link", func(t *testing.T) {
		store, wt := setup(t)
		writeFile(t, wt, ".envrc", "E")
		assert.Equal(t, model.StatusNotLink, FileStatusOf(link, filepath.Join(store, ".envrc"), wt))
	})

	t.Run("wrong link", func(t *testing.T) {
		store, wt := setup(t)
		elsewhere := writeFile(t, t.TempDir(), "x", "E")
		require.NoError(t, os.Symlink(elsewhere, filepath.Join(wt, ".envrc")))
		assert.Equal(t, model.StatusWrongLink, FileStatusOf(link, filepath.Join(store, ".envrc"), wt))
	})

	t.Run("dangling link counts as present", func(t *testing.T) {
		store, wt := setup(t)
		require.NoError(t, os.Symlink(filepath.Join(wt, "gone"), filepath.Join(wt, ".envrc")))
		assert.Equal(t, model.StatusWrongLink, FileStatusOf(link, filepath.Join(store, ".envrc"), wt))
	})

	t.Run("copy ok and modified", func(t *testing.T) {
		store, wt := setup(t)
		writeFile(t, wt, "conf/a", "A")
		storeFile := filepath.Join(store, "conf")
		assert.Equal(t, model.StatusOK, FileStatusOf(copied, storeFile, wt))

		writeFile(t, wt, "conf/extra", "X")
		assert.Equal(t, model.StatusModified, FileStatusOf(copied, storeFile, wt))
	})

	t.Run("copy entry with file where directory expected", func(t *testing.T) {
		store, wt := setup(t)
		writeFile(t, wt, "conf", "A")
		assert.Equal(t, model.StatusModified, FileStatusOf(copied, filepath.Join(store, "conf"), wt))
	})
}

// TestStore_Status reconciles a whole manifest in order.
func TestStore_Status(t *testing.T) {
	e := newTestEngine(t)
	writeFile(t, e.WorktreeRoot, ".envrc", "E")
	writeFile(t, e.WorktreeRoot, ".mcp.json", "{}")
	_, err := e.Track(model.StrategySymlink, ".envrc")
	require.NoError(t, err)
	_, err = e.Track(model.StrategyCopy, ".mcp.json")
	require.NoError(t, err)
	writeFile(t, e.WorktreeRoot, ".mcp.json", `{"edited":true}`)

	statuses, err := e.Store.Status(e.WorktreeRoot)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, ".envrc", statuses[0].Filepath)
	assert.Equal(t, model.StatusOK, statuses[0].Status)
	assert.Equal(t, model.StatusModified, statuses[1].Status)

	statuses, err = e.Store.Status("")
	require.NoError(t, err)
	for _, s := range statuses {
		assert.Equal(t, model.StatusStoreOnly, s.Status)
	}

	_, err = New(filepath.Join(t.TempDir(), "none")).Status(e.WorktreeRoot)
	assert.ErrorIs(t, err, model.ErrStoreNotInitialized)
}
