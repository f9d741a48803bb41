// Package cli implements the cobra-based CLI commands for ws.
//
// Each subcommand (new, rm, status, store, repos, interactive) is defined
// in its own file within this package. This file defines the root command
// that serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/ws/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, results and errors are printed as structured JSON for
	// scripts; when false (default), output is styled text.
	jsonOutput bool

	// verbose enables trace output on stderr, prefixed with "[verbose]".
	// It never changes what is written to stdout.
	verbose bool
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "0.3.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. It only provides
// help text and global flags; the work is done by subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "ws",
		Short: "Git worktree workspace manager with a shared file store",
		Long: `ws manages the worktrees of a repository and shares untracked files
(.envrc, .env, local config, secrets) between them.

Files registered in the store are either symlinked into every worktree, so
all worktrees see one master copy, or copied, so each worktree keeps an
independent copy that is synchronized explicitly with push and pull.

The store lives inside the repository's common git directory and is shared
by every worktree of that repository.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// A failed store command is rarely a usage mistake.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// Execute prints them as text or JSON depending on --json.
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// PersistentFlags are inherited by all subcommands, including the
	// nested store and repos groups.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Register subcommands. Each subcommand is defined in its own file
	// (new.go, store.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewNewCommand())
	rootCmd.AddCommand(NewRmCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewStoreCommand())
	rootCmd.AddCommand(NewReposCommand())
	rootCmd.AddCommand(NewInteractiveCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIErrors anywhere in the chain carry their own exit code; bare
// sentinel errors from the store are mapped by model.ExitCodeFor.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(cliErr.Message, cliErr.Err)
	} else {
		printError(err.Error(), nil)
	}
	os.Exit(int(model.ExitCodeFor(err)))
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		// The error object always has "message"; "detail" carries the
		// wrapped cause when there is one.
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
