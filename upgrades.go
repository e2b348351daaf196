package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// upgradeChrome is the number of lines around the upgrade table
const upgradeChrome = 8

// UpgradeModel lists installed packages with an update available and
// upgrades a selection of them, streaming winget's output into a log
// panel.
type UpgradeModel struct {
	source   PackageSource
	winget   *Winget
	streamer *Streamer
	logger   *slog.Logger
	send     func(tea.Msg)

	keys    keyMap
	log     viewport.Model
	spinner spinner.Model
	output  *DisplayBuffer

	candidates    []UpgradeCandidate
	cursor        int
	selected      map[string]bool // package ID -> selected
	loading       bool
	busy          bool
	cancel        context.CancelFunc
	confirming    bool
	toUpgrade     []UpgradeCandidate
	statusMessage string
	statusErr     bool
	statusTime    time.Time
	width         int
	height        int
}

// NewUpgradeModel creates an UpgradeModel; the listing is loaded by Init.
func NewUpgradeModel(opts ModelOptions) UpgradeModel {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = spinnerStyle

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	send := opts.Send
	if send == nil {
		send = func(tea.Msg) {}
	}

	return UpgradeModel{
		source:   opts.Source,
		winget:   opts.Winget,
		streamer: opts.Streamer,
		logger:   logger,
		send:     send,
		keys:     defaultKeyMap(),
		log:      viewport.New(DefaultWidth-4, LogPanelHeight),
		spinner:  sp,
		output:   NewDisplayBuffer(),
		selected: make(map[string]bool),
		loading:  true,
		width:    DefaultWidth,
		height:   DefaultHeight,
	}
}

// Init loads the upgrade listing
func (m UpgradeModel) Init() tea.Cmd {
	return tea.Batch(m.loadUpgrades(), m.spinner.Tick)
}

func (m UpgradeModel) loadUpgrades() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		candidates, err := source.Upgrades(context.Background())
		return upgradesLoadedMsg{candidates: candidates, err: err}
	}
}

// runUpgrades streams every upgrade in one busy window. Each package is
// its own command, so one failure does not stop the rest.
func (m UpgradeModel) runUpgrades(ctx context.Context, targets []UpgradeCandidate) tea.Cmd {
	ids := make([]string, 0, len(targets))
	for _, c := range targets {
		ids = append(ids, c.ID)
	}
	cmds := m.winget.UpgradeAll(ids)
	streamer := m.streamer
	sink := newTeaSink(m.send)
	return func() tea.Msg {
		outcomes := streamer.RunBatch(ctx, cmds, sink, sink)
		return operationDoneMsg{action: "upgrade", id: strings.Join(ids, ","), outcomes: outcomes}
	}
}

func (m *UpgradeModel) setStatus(msg string, isErr bool) {
	m.statusMessage = msg
	m.statusErr = isErr
	m.statusTime = time.Now()
}

func (m *UpgradeModel) setBusy(busy bool) {
	m.busy = busy
	m.keys.setBusy(busy)
}

// selectedCandidates returns the selected packages in listing order
func (m UpgradeModel) selectedCandidates() []UpgradeCandidate {
	var out []UpgradeCandidate
	for _, c := range m.candidates {
		if m.selected[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func (m *UpgradeModel) refreshLog() {
	m.log.SetContent(strings.Join(m.output.Lines(), "\n"))
	m.log.GotoBottom()
}

// Update handles messages
func (m UpgradeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log.Width = max(20, msg.Width-4)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case upgradesLoadedMsg:
		m.loading = false
		if msg.err != nil && !errors.Is(msg.err, ErrNoResults) {
			m.setStatus(fmt.Sprintf("Error listing upgrades: %v", msg.err), true)
			m.logger.Warn("listing upgrades failed", "error", msg.err)
			return m, nil
		}
		m.candidates = msg.candidates
		// Drop selections for packages that are no longer listed
		listed := make(map[string]bool, len(m.candidates))
		for _, c := range m.candidates {
			listed[c.ID] = true
		}
		for id := range m.selected {
			if !listed[id] {
				delete(m.selected, id)
			}
		}
		if m.cursor >= len(m.candidates) {
			m.cursor = max(0, len(m.candidates)-1)
		}

	case sinkMsg:
		applySinkMsg(m.output, msg)
		m.refreshLog()

	case busyMsg:
		m.setBusy(msg.busy)

	case operationDoneMsg:
		m.cancel = nil
		m.setBusy(false)
		failed := 0
		for _, o := range msg.outcomes {
			if !o.OK() {
				failed++
			}
		}
		if failed == 0 {
			m.setStatus(fmt.Sprintf("Upgraded %s", plural(len(msg.outcomes), "package")), false)
		} else {
			m.setStatus(fmt.Sprintf("%d of %d upgrades failed", failed, len(msg.outcomes)), true)
		}
		m.logger.Info("upgrade batch finished", "count", len(msg.outcomes), "failed", failed)
		m.selected = make(map[string]bool)
		m.loading = true
		return m, m.loadUpgrades()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m UpgradeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			targets := m.toUpgrade
			m.toUpgrade = nil
			if m.busy || len(targets) == 0 {
				return m, nil
			}
			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			m.setBusy(true)
			m.logger.Info("upgrade batch started", "count", len(targets))
			return m, m.runUpgrades(ctx, targets)
		case key.Matches(msg, m.keys.Cancel):
			m.confirming = false
			m.toUpgrade = nil
			m.setStatus("Cancelled", false)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Abort):
		if m.cancel != nil {
			m.cancel()
			m.setStatus("Aborting...", false)
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Select):
		if m.cursor < len(m.candidates) {
			id := m.candidates[m.cursor].ID
			m.selected[id] = !m.selected[id]
		}

	case key.Matches(msg, m.keys.SelectAll):
		allSelected := true
		for _, c := range m.candidates {
			if !m.selected[c.ID] {
				allSelected = false
				break
			}
		}
		for _, c := range m.candidates {
			m.selected[c.ID] = !allSelected
		}

	case key.Matches(msg, m.keys.Upgrade):
		if len(m.candidates) == 0 {
			return m, nil
		}
		// If we have selected items, upgrade those; otherwise the current one
		if selected := m.selectedCandidates(); len(selected) > 0 {
			m.toUpgrade = selected
		} else if m.cursor < len(m.candidates) {
			m.toUpgrade = []UpgradeCandidate{m.candidates[m.cursor]}
		}
		m.confirming = len(m.toUpgrade) > 0

	case key.Matches(msg, m.keys.UpgradeAll):
		if len(m.candidates) == 0 {
			return m, nil
		}
		m.toUpgrade = append([]UpgradeCandidate(nil), m.candidates...)
		m.confirming = true

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.setStatus("Refreshing...", false)
		return m, m.loadUpgrades()
	}

	return m, nil
}

// View renders the UI
func (m UpgradeModel) View() string {
	var sb strings.Builder

	title := "wingui upgrades"
	if count := len(m.selectedCandidates()); count > 0 {
		title += " " + selectedCountStyle.Render(fmt.Sprintf("[%d selected]", count))
	}
	if m.busy {
		title += " " + m.spinner.View()
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteByte('\n')

	nameW, idW, versionW := columnWidths(m.width - versionColWidth)
	header := fmt.Sprintf("    %s  %s  %s  %s", truncate("NAME", nameW), truncate("ID", idW),
		truncate("VERSION", versionW), truncate("AVAILABLE", versionColWidth))
	sb.WriteString(headerStyle.Render(header))
	sb.WriteByte('\n')

	switch {
	case m.loading && len(m.candidates) == 0:
		sb.WriteString(m.spinner.View() + " Checking for upgrades...")
		sb.WriteByte('\n')
	case len(m.candidates) == 0:
		sb.WriteString(emptyStyle.Render("All packages are up to date"))
		sb.WriteByte('\n')
	default:
		start, end := visibleRange(m.cursor, len(m.candidates), m.height-upgradeChrome-m.logHeight())
		for i := start; i < end; i++ {
			c := m.candidates[i]
			checkbox := checkboxUnchecked
			if m.selected[c.ID] {
				checkbox = checkboxChecked
			}
			line := fmt.Sprintf("%s %s  %s  %s  %s",
				checkbox,
				nameStyle.Render(truncate(c.Name, nameW)),
				idStyle.Render(truncate(c.ID, idW)),
				versionStyle.Render(truncate(c.Version, versionW)),
				availableStyle.Render(truncate(c.Available, versionColWidth)),
			)

			if i == m.cursor {
				sb.WriteString(selectedStyle.Render(line))
			} else if m.selected[c.ID] {
				sb.WriteString(checkedStyle.Render(line))
			} else {
				sb.WriteString(normalStyle.Render(line))
			}
			sb.WriteByte('\n')
		}
	}

	if m.logHeight() > 0 {
		sb.WriteString(logStyle.Render(m.log.View()))
		sb.WriteByte('\n')
	}

	if m.confirming {
		if len(m.toUpgrade) == 1 {
			c := m.toUpgrade[0]
			sb.WriteString(confirmStyle.Render(fmt.Sprintf("Upgrade %s from %s to %s? (y/n)", c.ID, c.Version, c.Available)))
		} else {
			sb.WriteString(confirmStyle.Render(fmt.Sprintf("Upgrade %s? (y/n)", plural(len(m.toUpgrade), "package"))))
		}
		sb.WriteByte('\n')
	}

	if m.statusMessage != "" && time.Since(m.statusTime) < StatusDisplayDuration {
		if m.statusErr {
			sb.WriteString(errorStyle.Render(m.statusMessage))
		} else {
			sb.WriteString(statusStyle.Render(m.statusMessage))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(helpStyle.Render(helpLine(m.keys.Up, m.keys.Down, m.keys.Select, m.keys.SelectAll,
		m.keys.Upgrade, m.keys.UpgradeAll, m.keys.Refresh, m.keys.Abort, m.keys.Quit)))
	return sb.String()
}

// versionColWidth is the width of the extra AVAILABLE column
const versionColWidth = 14

func (m UpgradeModel) logHeight() int {
	if m.output.Len() == 0 && !m.busy {
		return 0
	}
	return LogPanelHeight + 2
}
