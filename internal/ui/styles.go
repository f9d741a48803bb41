// Package ui provides terminal styling for ws output.
// Colors adapt to light and dark terminals; lipgloss drops them entirely
// when output is not a terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/ws/internal/model"
)

var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	FailBoldStyle = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	HeaderStyle   = lipgloss.NewStyle().Bold(true)
	MarkerStyle   = lipgloss.NewStyle().Foreground(ColorPass).Bold(true)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"

	// TreeBranch and TreeLast connect worktree rows under a repository.
	TreeBranch = "├──"
	TreeLast   = "└──"

	// Marker flags the current repository or worktree.
	Marker = "*"

	sectionWidth = 50
)

// StatusStyle returns the style for a store file status.
func StatusStyle(s model.FileStatus) lipgloss.Style {
	switch s {
	case model.StatusOK:
		return PassStyle
	case model.StatusMissing, model.StatusMissingStore:
		return FailStyle
	case model.StatusError:
		return FailBoldStyle
	case model.StatusModified, model.StatusNotLink, model.StatusWrongLink:
		return WarnStyle
	default:
		return MutedStyle
	}
}

// RepoTypeStyle returns the style for a repository type column value.
func RepoTypeStyle(kind string) lipgloss.Style {
	switch kind {
	case "bare":
		return AccentStyle
	case "NOT_FOUND":
		return FailStyle
	default:
		return lipgloss.NewStyle()
	}
}

// SectionHeader renders "── Title ─────" padded to a fixed ruler width.
func SectionHeader(title string) string {
	trail := sectionWidth - lipgloss.Width("── "+title+" ")
	if trail < 3 {
		trail = 3
	}
	return MutedStyle.Render("──") + " " + HeaderStyle.Render(title) + " " +
		MutedStyle.Render(strings.Repeat("─", trail))
}

// RenderWarn renders a warning line prefixed with the warning icon.
func RenderWarn(s string) string {
	return WarnStyle.Render(IconWarn + " " + s)
}

// RenderFail renders a failure line prefixed with the failure icon.
func RenderFail(s string) string {
	return FailStyle.Render(IconFail + " " + s)
}

// RenderPass renders a success line prefixed with the pass icon.
func RenderPass(s string) string {
	return PassStyle.Render(IconPass + " " + s)
}

// RenderMuted renders secondary text.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}
