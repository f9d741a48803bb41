//go:build !unix

package store

import "os"

// Advisory locking is unavailable; concurrent updates are last-writer-wins.
func flockExclusive(*os.File) error { return nil }

func flockUnlock(*os.File) error { return nil }
