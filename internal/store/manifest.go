package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/ws/internal/model"
)

// DroppedLine is a manifest line that could not be parsed.
type DroppedLine struct {
	Line int
	Text string
}

// maxDroppedText bounds the text kept for a dropped line.
const maxDroppedText = 120

// ParseManifest reads manifest lines from r. Blank lines are ignored.
// Unparseable lines and repeated filepaths are returned as dropped; the
// first occurrence of a filepath wins. Lines have no length limit.
func ParseManifest(r io.Reader) ([]model.ManifestEntry, []DroppedLine, error) {
	var (
		entries []model.ManifestEntry
		dropped []DroppedLine
		seen    = make(map[string]bool)
	)

	reader := bufio.NewReader(r)
	for n := 1; ; n++ {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, err
		}
		if raw == "" && err != nil {
			break
		}

		// One trailing CR is tolerated for files edited on Windows.
		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if strings.TrimSpace(line) != "" {
			entry, ok := model.ParseManifestLine(line)
			if !ok || seen[entry.Filepath] {
				dropped = append(dropped, DroppedLine{Line: n, Text: truncate(line, maxDroppedText)})
			} else {
				seen[entry.Filepath] = true
				entries = append(entries, entry)
			}
		}

		if err != nil {
			break
		}
	}
	return entries, dropped, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// FormatManifest renders entries in order, one line each, newline-terminated.
func FormatManifest(entries []model.ManifestEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ReadManifest returns the manifest entries in file order. A missing
// manifest reads as empty. Dropped lines are reported through Logf.
func (s *Store) ReadManifest() ([]model.ManifestEntry, error) {
	f, err := os.Open(s.ManifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, manifestError("read", err)
	}
	defer f.Close()

	entries, dropped, err := ParseManifest(f)
	if err != nil {
		return nil, manifestError("read", err)
	}
	for _, d := range dropped {
		s.warnf("manifest line %d ignored: %q", d.Line, d.Text)
	}
	return entries, nil
}

// WriteManifest replaces the manifest with entries. The file is written to
// a temporary sibling and renamed into place, so readers never observe a
// partial manifest.
func (s *Store) WriteManifest(entries []model.ManifestEntry) error {
	if err := s.Ensure(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, ManifestName+"-*.tmp")
	if err != nil {
		return manifestError("write", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(FormatManifest(entries)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return manifestError("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return manifestError("write", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return manifestError("write", err)
	}
	if err := os.Rename(tmpName, s.ManifestPath()); err != nil {
		os.Remove(tmpName)
		return manifestError("write", err)
	}
	return nil
}

// Lookup returns the entry for rel, if tracked.
func Lookup(entries []model.ManifestEntry, rel string) (model.ManifestEntry, bool) {
	for _, e := range entries {
		if e.Filepath == rel {
			return e, true
		}
	}
	return model.ManifestEntry{}, false
}

// Upsert sets the strategy for entry.Filepath, keeping its position when
// already tracked and appending otherwise. It reports whether an existing
// entry was replaced.
func Upsert(entries []model.ManifestEntry, entry model.ManifestEntry) ([]model.ManifestEntry, bool) {
	for i, e := range entries {
		if e.Filepath == entry.Filepath {
			entries[i] = entry
			return entries, true
		}
	}
	return append(entries, entry), false
}

// Remove drops the entry for rel and reports whether it was present.
func Remove(entries []model.ManifestEntry, rel string) ([]model.ManifestEntry, bool) {
	for i, e := range entries {
		if e.Filepath == rel {
			return append(entries[:i:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

func manifestError(op string, err error) error {
	return model.WrapCLIError(model.ExitManifestIO,
		fmt.Sprintf("cannot %s manifest", op), fmt.Errorf("%w: %w", model.ErrManifestIO, err))
}

// lockPath returns the advisory lock file path.
func (s *Store) lockPath() string {
	return filepath.Join(s.Dir, LockName)
}

// WithLock runs fn while holding the store's exclusive advisory lock.
// The store directory is created if needed.
func (s *Store) WithLock(fn func() error) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return manifestError("lock", err)
	}
	defer f.Close()

	if err := flockExclusive(f); err != nil {
		return manifestError("lock", err)
	}
	defer func() { _ = flockUnlock(f) }()

	return fn()
}
