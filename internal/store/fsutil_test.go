package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCopyTree verifies recursive copies keep permissions and recreate
// nested symlinks instead of following them.
func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "bin/run.sh", "#!/bin/sh\n")
	require.NoError(t, os.Chmod(filepath.Join(src, "bin/run.sh"), 0o755))
	writeFile(t, src, "data/value", "v")
	require.NoError(t, os.Symlink("../data/value", filepath.Join(src, "bin", "link")))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, copyTree(src, dst))

	info, err := os.Stat(filepath.Join(dst, "bin/run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	assertSymlinkTo(t, filepath.Join(dst, "bin", "link"), "../data/value")
	assert.Equal(t, "v", readFile(t, filepath.Join(dst, "bin", "link")))

	eq, err := treesEqual(src, dst)
	require.NoError(t, err)
	assert.True(t, eq)
}

// TestCopyTree_FollowsTopLevelLink verifies a symlinked source is copied
// as content, and a dangling one as a link.
func TestCopyTree_FollowsTopLevelLink(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "real", "content")
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "dangling")))

	require.NoError(t, copyTree(filepath.Join(dir, "link"), filepath.Join(dir, "copy")))
	assertRegular(t, filepath.Join(dir, "copy"))
	assert.Equal(t, "content", readFile(t, filepath.Join(dir, "copy")))

	require.NoError(t, copyTree(filepath.Join(dir, "dangling"), filepath.Join(dir, "copy2")))
	assertSymlinkTo(t, filepath.Join(dir, "copy2"), filepath.Join(dir, "gone"))
}

func TestTreesEqual(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, a, "x/y", "same")
	writeFile(t, b, "x/y", "same")

	eq, err := treesEqual(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	writeFile(t, b, "x/y", "diff")
	eq, err = treesEqual(a, b)
	require.NoError(t, err)
	assert.False(t, eq, "same size, different bytes")

	writeFile(t, b, "x/y", "same")
	writeFile(t, b, "x/z", "")
	eq, err = treesEqual(a, b)
	require.NoError(t, err)
	assert.False(t, eq, "extra name")

	_, err = treesEqual(a, filepath.Join(b, "missing"))
	assert.Error(t, err)
}

// TestFilesEqual_LargeFiles exercises the chunked comparison across
// buffer boundaries.
func TestFilesEqual_LargeFiles(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("0123456789abcdef", compareChunk/8)
	a := writeFile(t, dir, "a", content)
	b := writeFile(t, dir, "b", content)

	eq, err := filesEqual(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	c := writeFile(t, dir, "c", content[:len(content)-1]+"X")
	eq, err = filesEqual(a, c)
	require.NoError(t, err)
	assert.False(t, eq)
}

// TestPruneEmptyParents verifies pruning stops at the first non-empty
// directory and never removes the stop directory.
func TestPruneEmptyParents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
	writeFile(t, root, "a/keep", "k")

	pruneEmptyParents(filepath.Join(root, "a", "b", "c", "file"), root)
	assert.NoDirExists(t, filepath.Join(root, "a", "b"))
	assert.DirExists(t, filepath.Join(root, "a"))

	require.NoError(t, os.Remove(filepath.Join(root, "a", "keep")))
	pruneEmptyParents(filepath.Join(root, "a", "file"), root)
	assert.NoDirExists(t, filepath.Join(root, "a"))
	assert.DirExists(t, root)
}
