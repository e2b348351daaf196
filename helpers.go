package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/mattn/go-runewidth"
)

// truncate fits s into exactly width terminal cells, padding with
// spaces if shorter and cutting with an ellipsis if longer
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return runewidth.FillRight(s, width)
	}
	return runewidth.Truncate(s, width, "…")
}

// columnWidths splits the available width between the name, id and
// version columns of a results table.
func columnWidths(total int) (name, id, version int) {
	const (
		minName    = 16
		minID      = 16
		versionCol = 14
		gutters    = 8 // prefix + separators
	)
	avail := total - versionCol - gutters
	if avail < minName+minID {
		return minName, minID, versionCol
	}
	name = avail * 45 / 100
	id = avail - name
	return name, id, versionCol
}

// visibleRange returns the slice bounds of the rows to draw so that the
// cursor stays on screen.
func visibleRange(cursor, total, height int) (start, end int) {
	if height <= 0 || total <= height {
		return 0, total
	}
	start = cursor - height/2
	if start < 0 {
		start = 0
	}
	end = start + height
	if end > total {
		end = total
		start = end - height
	}
	return start, end
}

// helpLine renders key bindings as "key desc • key desc". Disabled
// bindings are shown struck through so it is obvious they are off.
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		entry := h.Key + " " + h.Desc
		if !b.Enabled() {
			entry = disabledStyle.Render(entry)
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, " • ")
}

// plural formats a count with its noun.
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
