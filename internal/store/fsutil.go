package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// pathExists reports whether anything (including a dangling symlink) is
// present at path.
func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// isSymlink reports whether path itself is a symbolic link.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// copyTree copies src to dst. A symlink at src itself is followed; a
// dangling one is recreated as a link. Below the top level, symlinks are
// recreated rather than followed. Regular files keep their permission bits.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		linfo, lerr := os.Lstat(src)
		if lerr != nil {
			return err
		}
		info = linfo
	}
	return copyEntry(src, dst, info)
}

func copyEntry(src, dst string, info fs.FileInfo) error {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.Symlink(target, dst)

	case info.IsDir():
		if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			child, err := os.Lstat(filepath.Join(src, e.Name()))
			if err != nil {
				return err
			}
			if err := copyEntry(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()), child); err != nil {
				return err
			}
		}
		return nil

	case info.Mode().IsRegular():
		return copyFile(src, dst, info.Mode().Perm())

	default:
		return fmt.Errorf("%s: unsupported file type %s", src, info.Mode().Type())
	}
}

func copyFile(src, dst string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile only applies perm on creation, and umask may have masked it.
	return os.Chmod(dst, perm)
}

// treesEqual reports whether a and b hold the same content. The top level
// of each side is followed if it is a symlink. Directories are equal when
// they contain the same names with equal content; nested symlinks compare
// by target.
func treesEqual(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return entriesEqual(a, b, ai, bi)
}

func entriesEqual(a, b string, ai, bi fs.FileInfo) (bool, error) {
	if ai.Mode().Type() != bi.Mode().Type() {
		return false, nil
	}

	switch {
	case ai.Mode()&fs.ModeSymlink != 0:
		at, err := os.Readlink(a)
		if err != nil {
			return false, err
		}
		bt, err := os.Readlink(b)
		if err != nil {
			return false, err
		}
		return at == bt, nil

	case ai.IsDir():
		an, err := dirNames(a)
		if err != nil {
			return false, err
		}
		bn, err := dirNames(b)
		if err != nil {
			return false, err
		}
		if len(an) != len(bn) {
			return false, nil
		}
		for i := range an {
			if an[i] != bn[i] {
				return false, nil
			}
		}
		for _, name := range an {
			ca, cb := filepath.Join(a, name), filepath.Join(b, name)
			cai, err := os.Lstat(ca)
			if err != nil {
				return false, err
			}
			cbi, err := os.Lstat(cb)
			if err != nil {
				return false, err
			}
			eq, err := entriesEqual(ca, cb, cai, cbi)
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil

	default:
		if ai.Size() != bi.Size() {
			return false, nil
		}
		return filesEqual(a, b)
	}
}

func dirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names, nil
}

const compareChunk = 32 * 1024

func filesEqual(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		endA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		endB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !endA {
			return false, errA
		}
		if errB != nil && !endB {
			return false, errB
		}
		if endA || endB {
			return endA == endB, nil
		}
	}
}

// pruneEmptyParents removes empty directories above path, stopping at
// (and never removing) stop.
func pruneEmptyParents(path, stop string) {
	stop = filepath.Clean(stop)
	for dir := filepath.Dir(path); dir != stop && len(dir) > len(stop); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}
