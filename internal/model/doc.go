// Package model defines the domain types and value objects for the ws CLI.
//
// This package contains pure data structures with no external dependencies:
// the sync Strategy, ManifestEntry and its line codec, the derived
// FileStatus taxonomy, and the tagged Outcome of per-entry operations.
//
// The package also defines the store's sentinel errors, exit codes
// (ExitCode) and a custom error type (CLIError) that carries exit codes
// for proper OS process exit handling.
package model
