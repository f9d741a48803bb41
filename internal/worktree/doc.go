// Package worktree provides Git worktree management operations for
// the ws CLI.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Requires Git >= 2.42 (`worktree add --orphan`, `--path-format`)
//
// The Manager struct provides methods for adding, listing, and removing
// worktrees, and for locating the common git directory that hosts the
// shared file store.
package worktree
