package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/mattn/go-runewidth"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"pads short", "Git", 6, "Git   "},
		{"exact", "Git.Git", 7, "Git.Git"},
		{"cuts long", "Microsoft.VisualStudioCode", 10, "Microsoft…"},
		{"zero width", "Git", 0, ""},
		{"wide runes", "微信微信", 5, "微信…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, expected %q", tt.input, tt.width, result, tt.expected)
			}
			if tt.width > 0 && runewidth.StringWidth(result) > tt.width {
				t.Errorf("result %q is wider than %d", result, tt.width)
			}
		})
	}
}

func TestColumnWidths(t *testing.T) {
	name, id, version := columnWidths(100)
	if name+id+version+8 != 100 {
		t.Errorf("columns %d+%d+%d do not fill 100", name, id, version)
	}

	name, id, version = columnWidths(20)
	if name < 16 || id < 16 || version != 14 {
		t.Errorf("narrow terminal should fall back to minimums, got %d %d %d", name, id, version)
	}
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		name                  string
		cursor, total, height int
		start, end            int
	}{
		{"fits", 2, 5, 10, 0, 5},
		{"top", 0, 50, 10, 0, 10},
		{"middle", 25, 50, 10, 20, 30},
		{"bottom", 49, 50, 10, 40, 50},
		{"no height", 3, 50, 0, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := visibleRange(tt.cursor, tt.total, tt.height)
			if start != tt.start || end != tt.end {
				t.Errorf("visibleRange() = %d, %d, expected %d, %d", start, end, tt.start, tt.end)
			}
			if tt.cursor < start || tt.cursor >= end {
				t.Errorf("cursor %d not in [%d, %d)", tt.cursor, start, end)
			}
		})
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "package"); got != "1 package" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(3, "package"); got != "3 packages" {
		t.Errorf("plural(3) = %q", got)
	}
}

func TestHelpLine(t *testing.T) {
	k := defaultKeyMap()
	line := helpLine(k.Install, k.Quit)
	if !strings.Contains(line, "i install") || !strings.Contains(line, "q quit") {
		t.Errorf("helpLine() = %q", line)
	}
}

func TestKeyMapSetBusy(t *testing.T) {
	k := defaultKeyMap()
	if k.Abort.Enabled() {
		t.Error("abort should start disabled")
	}

	k.setBusy(true)
	for name, b := range map[string]key.Binding{"install": k.Install, "uninstall": k.Uninstall, "upgrade": k.Upgrade, "upgrade all": k.UpgradeAll} {
		if b.Enabled() {
			t.Errorf("%s should be disabled while busy", name)
		}
	}
	if !k.Abort.Enabled() {
		t.Error("abort should be enabled while busy")
	}

	k.setBusy(false)
	if !k.Install.Enabled() || !k.Uninstall.Enabled() || k.Abort.Enabled() {
		t.Error("controls not restored after busy")
	}

	// Each model owns its bindings.
	other := defaultKeyMap()
	k.setBusy(true)
	if !other.Install.Enabled() {
		t.Error("setBusy leaked into another key map")
	}
}
