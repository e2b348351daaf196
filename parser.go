package main

import (
	"errors"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// NoDescription is shown when a package's manifest has no description.
const NoDescription = "Not provided by package."

// ErrNoResults is returned when a listing command found nothing.
var ErrNoResults = errors.New("no packages found")

// noResultsMarker is printed by winget instead of a table.
const noResultsMarker = "no package found"

// Pre-compiled regular expressions for table and show output
var (
	boundaryRegex   = regexp.MustCompile(`^-{5,}`)
	dashesOnlyRegex = regexp.MustCompile(`^-{3,}\s*$`)
	columnGapRegex  = regexp.MustCompile(`\s{2,}`)
	foundBannerRe   = regexp.MustCompile(`^Found\s.+\s\[[^\]]*\]$`)
)

// PackageRecord is one row of a search or list table. ID is the key
// used for every later operation on the package.
type PackageRecord struct {
	Name    string
	ID      string
	Version string
}

// UpgradeCandidate is one row of the `winget upgrade` listing.
type UpgradeCandidate struct {
	PackageRecord
	Available string
}

// ParseTable extracts package rows from the output of a search or list
// command. Everything up to the dashed header rule is discarded; rows
// with fewer than three columns are skipped.
func ParseTable(text string) ([]PackageRecord, error) {
	rows, err := parseRows(text)
	if err != nil {
		return nil, err
	}
	records := make([]PackageRecord, 0, len(rows))
	for _, fields := range rows {
		records = append(records, PackageRecord{Name: fields[0], ID: fields[1], Version: fields[2]})
	}
	return records, nil
}

// ParseUpgradeTable is ParseTable for the upgrade listing, which has an
// extra Available column.
func ParseUpgradeTable(text string) ([]UpgradeCandidate, error) {
	rows, err := parseRows(text)
	if err != nil {
		return nil, err
	}
	candidates := make([]UpgradeCandidate, 0, len(rows))
	for _, fields := range rows {
		c := UpgradeCandidate{PackageRecord: PackageRecord{Name: fields[0], ID: fields[1], Version: fields[2]}}
		if len(fields) > 3 {
			c.Available = fields[3]
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// parseRows returns the column fields of every body row with at least
// three columns.
func parseRows(text string) ([][]string, error) {
	if strings.TrimSpace(text) == "" || strings.Contains(strings.ToLower(text), noResultsMarker) {
		return nil, ErrNoResults
	}

	var rows [][]string
	inBody := false
	lastWasRow := false // previous non-blank line produced a row
	for _, raw := range strings.Split(text, "\n") {
		line := visibleLine(raw)
		if isBoundary(line) {
			// The row right above a second rule is that table's header.
			if inBody && lastWasRow {
				rows = rows[:len(rows)-1]
			}
			inBody = true
			lastWasRow = false
			continue
		}
		if !inBody {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := columnGapRegex.Split(strings.TrimSpace(line), -1)
		if len(fields) < 3 {
			lastWasRow = false
			continue
		}
		rows = append(rows, fields)
		lastWasRow = true
	}
	return rows, nil
}

// visibleLine returns what a terminal would show for one captured line:
// escape sequences removed and anything before the last carriage return
// overwritten.
func visibleLine(raw string) string {
	line := ansi.Strip(strings.TrimSuffix(raw, "\r"))
	if i := strings.LastIndex(line, "\r"); i >= 0 {
		line = line[i+1:]
	}
	return line
}

func isBoundary(line string) bool {
	return boundaryRegex.MatchString(line) || dashesOnlyRegex.MatchString(line)
}

// ParseDescription extracts the Description block from `winget show`
// output. The block starts at the "Description:" label and continues
// over lines indented by at least two spaces.
func ParseDescription(showText string) string {
	var desc []string
	inDesc := false
	for _, raw := range strings.Split(showText, "\n") {
		line := visibleLine(raw)
		if foundBannerRe.MatchString(line) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "Description:") {
			inDesc = true
			_, rest, _ := strings.Cut(line, "Description:")
			if rest = strings.TrimSpace(rest); rest != "" {
				desc = append(desc, RepairEncoding(rest))
			}
			continue
		}
		if !inDesc {
			continue
		}
		if !strings.HasPrefix(line, "  ") {
			break
		}
		desc = append(desc, RepairEncoding(strings.TrimSpace(line)))
	}
	if len(desc) == 0 {
		return NoDescription
	}
	return strings.Join(desc, "\n")
}

// mojibakeReplacer undoes UTF-8 text that was decoded as Windows-1252
// somewhere upstream.
var mojibakeReplacer = strings.NewReplacer(
	"â€™", "’",
	"â€“", "–",
	"Â©", "©",
)

// RepairEncoding fixes the known mis-decoded sequences in a line of
// package text. Applying it twice is the same as applying it once.
func RepairEncoding(line string) string {
	return mojibakeReplacer.Replace(line)
}
