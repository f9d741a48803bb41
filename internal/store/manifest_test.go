package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/ws/internal/model"
)

// TestParseManifest covers the tolerant reader: malformed and duplicate
// lines are dropped with their line numbers, everything else keeps order.
func TestParseManifest(t *testing.T) {
	input := strings.Join([]string{
		"symlink:.envrc",
		"",
		"copy:config/local.yml\r",
		"no_colon_here",
		":empty_strategy",
		"symlink:path:with:colon",
		"copy:.envrc",
		"hardlink:x",
	}, "\n")

	entries, dropped, err := ParseManifest(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []model.ManifestEntry{
		{Strategy: model.StrategySymlink, Filepath: ".envrc"},
		{Strategy: model.StrategyCopy, Filepath: "config/local.yml"},
		{Strategy: model.StrategySymlink, Filepath: "path:with:colon"},
	}, entries)

	require.Len(t, dropped, 4)
	assert.Equal(t, DroppedLine{Line: 4, Text: "no_colon_here"}, dropped[0])
	assert.Equal(t, 5, dropped[1].Line)
	assert.Equal(t, DroppedLine{Line: 7, Text: "copy:.envrc"}, dropped[2], "duplicate path keeps the first entry")
	assert.Equal(t, 8, dropped[3].Line)
}

// TestParseManifest_LongLine verifies that an oversized corrupt line is
// dropped on its own instead of failing the whole read.
func TestParseManifest_LongLine(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	entries, dropped, err := ParseManifest(strings.NewReader("copy:a\n" + long + "\nsymlink:b\n"))
	require.NoError(t, err)

	assert.Equal(t, []model.ManifestEntry{
		{Strategy: model.StrategyCopy, Filepath: "a"},
		{Strategy: model.StrategySymlink, Filepath: "b"},
	}, entries)
	require.Len(t, dropped, 1)
	assert.Equal(t, 2, dropped[0].Line)
	assert.Less(t, len(dropped[0].Text), 200)
}

// TestParseManifest_NoTrailingNewline verifies the last line is kept when
// the file does not end in a newline, and that only one CR is stripped.
func TestParseManifest_NoTrailingNewline(t *testing.T) {
	entries, dropped, err := ParseManifest(strings.NewReader("copy:a\r\r\nsymlink:b"))
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, []model.ManifestEntry{
		{Strategy: model.StrategyCopy, Filepath: "a\r"},
		{Strategy: model.StrategySymlink, Filepath: "b"},
	}, entries)
}

func TestFormatManifest(t *testing.T) {
	assert.Empty(t, FormatManifest(nil))
	assert.Equal(t, "symlink:.envrc\ncopy:a:b\n", string(FormatManifest([]model.ManifestEntry{
		{Strategy: model.StrategySymlink, Filepath: ".envrc"},
		{Strategy: model.StrategyCopy, Filepath: "a:b"},
	})))
}

// TestStore_ReadWriteManifest verifies that a missing manifest reads as
// empty and that writes replace the file atomically without leftovers.
func TestStore_ReadWriteManifest(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "worktree-store"))

	entries, err := s.ReadManifest()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, s.Exists(), "reading must not create the store")

	want := []model.ManifestEntry{
		{Strategy: model.StrategyCopy, Filepath: "b"},
		{Strategy: model.StrategySymlink, Filepath: "a"},
	}
	require.NoError(t, s.WriteManifest(want))

	got, err := s.ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	names, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, ManifestName, names[0].Name())
}

// TestStore_ReadManifestWarnings verifies dropped lines reach Logf.
func TestStore_ReadManifestWarnings(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.WriteFile(s.ManifestPath(), []byte("copy:ok\nbroken\n"), 0o644))

	var warnings []string
	s.Logf = func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	entries, err := s.ReadManifest()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"broken"`)
	assert.Contains(t, warnings[0], "line 2")
}

func TestStore_Require(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	err := s.Require()
	assert.ErrorIs(t, err, model.ErrStoreNotInitialized)
	assert.Equal(t, model.ExitStoreNotInitialized, model.ExitCodeFor(err))

	require.NoError(t, s.Ensure())
	assert.NoError(t, s.Require())

	// Ensure never truncates an existing manifest.
	entries := []model.ManifestEntry{{Strategy: model.StrategyCopy, Filepath: ".env"}}
	require.NoError(t, s.WriteManifest(entries))
	require.NoError(t, s.Ensure())
	got, err := s.ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	// A directory without a manifest is not an initialized store.
	require.NoError(t, os.Remove(s.ManifestPath()))
	assert.ErrorIs(t, s.Require(), model.ErrStoreNotInitialized)
}

// TestUpsertRemove verifies that re-tracking keeps the manifest position.
func TestUpsertRemove(t *testing.T) {
	var entries []model.ManifestEntry
	entries, replaced := Upsert(entries, model.ManifestEntry{Strategy: model.StrategyCopy, Filepath: "a"})
	assert.False(t, replaced)
	entries, _ = Upsert(entries, model.ManifestEntry{Strategy: model.StrategyCopy, Filepath: "b"})
	entries, replaced = Upsert(entries, model.ManifestEntry{Strategy: model.StrategySymlink, Filepath: "a"})
	assert.True(t, replaced)

	assert.Equal(t, []model.ManifestEntry{
		{Strategy: model.StrategySymlink, Filepath: "a"},
		{Strategy: model.StrategyCopy, Filepath: "b"},
	}, entries)

	e, ok := Lookup(entries, "b")
	assert.True(t, ok)
	assert.Equal(t, model.StrategyCopy, e.Strategy)

	entries, removed := Remove(entries, "a")
	assert.True(t, removed)
	_, removed = Remove(entries, "a")
	assert.False(t, removed)
	assert.Equal(t, []model.ManifestEntry{{Strategy: model.StrategyCopy, Filepath: "b"}}, entries)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
		valid bool
	}{
		{".envrc", ".envrc", true},
		{"./config/local.yml", "config/local.yml", true},
		{"secrets/", "secrets", true},
		{"a/../b", "b", true},
		{"", "", false},
		{".", "", false},
		{"../outside", "", false},
		{"/etc/passwd", "", false},
		{"manifest", "", false},
		{"manifest.lock", "", false},
		{".git/config", "", false},
		{"weird\r", "", false},
		{"two\nlines", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizePath(tt.input)
			if !tt.valid {
				assert.ErrorIs(t, err, model.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
