package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Cell is one table cell with an optional style.
type Cell struct {
	Text  string
	Style *lipgloss.Style
}

// Plain returns an unstyled cell.
func Plain(text string) Cell {
	return Cell{Text: text}
}

// Styled returns a cell rendered with style.
func Styled(text string, style lipgloss.Style) Cell {
	return Cell{Text: text, Style: &style}
}

func (c Cell) render() string {
	if c.Style == nil {
		return c.Text
	}
	return c.Style.Render(c.Text)
}

// Table is a column-aligned text table with a bold header, a dim rule
// under each header and an optional per-row marker.
type Table struct {
	Headers []string
	Rows    [][]Cell

	// Marked flags rows that get Marker in the indent. It is indexed like
	// Rows and may be shorter.
	Marked []bool

	// Indent is the number of leading spaces on every line.
	Indent int
}

// AddRow appends a row.
func (t *Table) AddRow(marked bool, cells ...Cell) {
	t.Rows = append(t.Rows, cells)
	t.Marked = append(t.Marked, marked)
}

// Render writes the table to w. Column widths are computed from the
// unstyled text so escape sequences never misalign columns.
func (t *Table) Render(w io.Writer) {
	if len(t.Headers) == 0 {
		return
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i].Text))
		}
	}

	prefix := strings.Repeat(" ", t.Indent)

	header := make([]Cell, len(t.Headers))
	rule := make([]Cell, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = Styled(h, HeaderStyle)
		rule[i] = Styled(strings.Repeat("─", len(h)), MutedStyle)
	}
	fmt.Fprintln(w, prefix+joinCells(header, widths))
	fmt.Fprintln(w, prefix+joinCells(rule, widths))

	for i, row := range t.Rows {
		rowPrefix := prefix
		if i < len(t.Marked) && t.Marked[i] && t.Indent > 0 {
			rowPrefix = MarkerStyle.Render(Marker) + strings.Repeat(" ", t.Indent-1)
		}
		fmt.Fprintln(w, rowPrefix+joinCells(row, widths))
	}
}

// joinCells pads every cell but the last to its column width.
func joinCells(cells []Cell, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		var c Cell
		if i < len(cells) {
			c = cells[i]
		}
		parts[i] = c.render()
		if i < len(widths)-1 {
			parts[i] += strings.Repeat(" ", widths[i]-lipgloss.Width(c.Text))
		}
	}
	return strings.Join(parts, "  ")
}
