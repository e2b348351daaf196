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
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Configuration constants
const (
	// StatusDisplayDuration is how long status messages are shown
	StatusDisplayDuration = 4 * time.Second

	// DefaultWidth is used until the first WindowSizeMsg arrives
	DefaultWidth = 100

	// DefaultHeight is used until the first WindowSizeMsg arrives
	DefaultHeight = 30

	// LogPanelHeight is the number of output lines visible on the
	// detail screen
	LogPanelHeight = 10

	// searchChrome is the number of lines around the results table
	searchChrome = 9
)

// operation is an install or uninstall waiting for confirmation.
type operation struct {
	action string
	record PackageRecord
}

// ModelOptions wires a Model to its collaborators.
type ModelOptions struct {
	Source   PackageSource
	Winget   *Winget
	Streamer *Streamer
	Logger   *slog.Logger
	// Send delivers messages from worker goroutines to the running
	// program. Usually (*tea.Program).Send via a programRelay.
	Send func(tea.Msg)
	// Query, when set, is searched for on startup.
	Query string
}

// Model represents the TUI state for searching and managing packages
type Model struct {
	state    *ScreenState
	source   PackageSource
	winget   *Winget
	streamer *Streamer
	logger   *slog.Logger
	send     func(tea.Msg)

	keys    keyMap
	input   textinput.Model
	log     viewport.Model
	spinner spinner.Model
	output  *DisplayBuffer

	cursor        int
	searching     bool   // search input has focus
	loading       bool   // search in flight
	lastQuery     string // query of the results on screen
	detailsLoaded int
	busy          bool
	cancel        context.CancelFunc
	confirm       *operation
	initialQuery  string
	statusMessage string
	statusErr     bool
	statusTime    time.Time
	width         int
	height        int
}

// NewModel creates a Model with the search box focused
func NewModel(opts ModelOptions) Model {
	ti := textinput.New()
	ti.Placeholder = "Search packages..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

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

	return Model{
		state:        NewScreenState(),
		source:       opts.Source,
		winget:       opts.Winget,
		streamer:     opts.Streamer,
		logger:       logger,
		send:         send,
		keys:         defaultKeyMap(),
		input:        ti,
		log:          viewport.New(DefaultWidth-4, LogPanelHeight),
		spinner:      sp,
		output:       NewDisplayBuffer(),
		searching:    true,
		initialQuery: strings.TrimSpace(opts.Query),
		width:        DefaultWidth,
		height:       DefaultHeight,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.initialQuery != "" {
		cmds = append(cmds, func() tea.Msg { return submitQueryMsg{query: m.initialQuery} })
	}
	return tea.Batch(cmds...)
}

// submitQueryMsg starts a search as if the user had typed it
type submitQueryMsg struct {
	query string
}

// searchPackages runs the search for one result generation
func (m Model) searchPackages(generation int, query string) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		records, err := source.Search(context.Background(), query)
		return searchResultsMsg{generation: generation, records: records, err: err}
	}
}

// fetchDetail fetches the description of the index-th result. Each
// detailFetchedMsg schedules the next index, so one fetch is in flight
// at a time and a new search simply stops the chain.
func (m Model) fetchDetail(generation int, records []PackageRecord, index int) tea.Cmd {
	if index >= len(records) {
		return nil
	}
	source := m.source
	id := records[index].ID
	return func() tea.Msg {
		text, err := source.Show(context.Background(), id)
		msg := detailFetchedMsg{generation: generation, index: index, id: id, err: err}
		if err == nil {
			msg.description = ParseDescription(text)
		}
		return msg
	}
}

// runOperation streams a live install/uninstall into the log panel.
// The worker never touches the model: output and busy state arrive as
// sinkMsg/busyMsg through send.
func (m Model) runOperation(ctx context.Context, op operation, cmd CommandRequest) tea.Cmd {
	streamer := m.streamer
	sink := newTeaSink(m.send)
	return func() tea.Msg {
		outcome := streamer.Run(ctx, cmd, sink, sink)
		return operationDoneMsg{action: op.action, id: op.record.ID, outcomes: []Outcome{outcome}}
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMessage = msg
	m.statusErr = isErr
	m.statusTime = time.Now()
}

func (m *Model) setBusy(busy bool) {
	m.busy = busy
	m.keys.setBusy(busy)
}

// startSearch validates query and issues a new search. The previous
// results and their cached details are dropped immediately.
func (m *Model) startSearch(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		m.setStatus("Please enter a search term.", true)
		return nil
	}
	generation := m.state.NewSearchIssued()
	m.loading = true
	m.lastQuery = query
	m.cursor = 0
	m.detailsLoaded = 0
	m.searching = false
	m.input.Blur()
	m.logger.Info("search issued", "query", query, "generation", generation)
	return m.searchPackages(generation, query)
}

// startOperation launches the confirmed operation.
func (m *Model) startOperation(op operation) tea.Cmd {
	var cmd CommandRequest
	switch op.action {
	case "install":
		cmd = m.winget.Install(op.record.ID)
	case "uninstall":
		cmd = m.winget.Uninstall(op.record.ID)
	default:
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	// Disable the controls right away; the worker's busyMsg confirms it.
	m.setBusy(true)
	m.logger.Info("operation started", "action", op.action, "id", op.record.ID)
	return m.runOperation(ctx, op, cmd)
}

func (m *Model) refreshLog() {
	m.log.SetContent(strings.Join(m.output.Lines(), "\n"))
	m.log.GotoBottom()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log.Width = max(20, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitQueryMsg:
		return m, m.startSearch(msg.query)

	case searchResultsMsg:
		if msg.generation != m.state.Generation() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			switch {
			case errors.Is(msg.err, ErrNoResults):
				m.setStatus("No packages found for your search.", false)
			case errors.Is(msg.err, ErrEmptyQuery):
				m.setStatus("Please enter a search term.", true)
			default:
				m.setStatus(fmt.Sprintf("Search error: %v", msg.err), true)
				m.logger.Warn("search failed", "query", m.lastQuery, "error", msg.err)
			}
			return m, nil
		}
		m.state.SetResults(msg.generation, msg.records)
		if len(msg.records) == 0 {
			m.setStatus("No packages found for your search.", false)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Found %s", plural(len(msg.records), "package")), false)
		return m, m.fetchDetail(msg.generation, msg.records, 0)

	case detailFetchedMsg:
		description := msg.description
		if msg.err != nil {
			description = fmt.Sprintf("Could not load details: %v", msg.err)
			m.logger.Warn("detail fetch failed", "id", msg.id, "error", msg.err)
		}
		if !m.state.StoreDetail(msg.generation, msg.id, description) {
			// Superseded by a newer search.
			return m, nil
		}
		m.detailsLoaded++
		return m, m.fetchDetail(msg.generation, m.state.Results(), msg.index+1)

	case sinkMsg:
		applySinkMsg(m.output, msg)
		m.refreshLog()
		return m, nil

	case busyMsg:
		m.setBusy(msg.busy)
		return m, nil

	case operationDoneMsg:
		m.cancel = nil
		m.setBusy(false)
		m.reportOperation(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) reportOperation(msg operationDoneMsg) {
	if len(msg.outcomes) == 0 {
		return
	}
	outcome := msg.outcomes[0]
	switch {
	case outcome.OK():
		m.setStatus(fmt.Sprintf("%s of %s finished", titleCase(msg.action), msg.id), false)
	case errors.Is(outcome.Err, context.Canceled):
		m.setStatus(fmt.Sprintf("%s of %s aborted", titleCase(msg.action), msg.id), true)
	default:
		m.setStatus(fmt.Sprintf("%s of %s failed", titleCase(msg.action), msg.id), true)
	}
	m.logger.Info("operation finished", "action", msg.action, "id", msg.id, "exit_code", outcome.ExitCode, "error", outcome.Err)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	// Confirmation prompt takes precedence
	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			op := *m.confirm
			m.confirm = nil
			if m.busy {
				return m, nil
			}
			return m, m.startOperation(op)
		case key.Matches(msg, m.keys.Cancel):
			m.confirm = nil
			m.setStatus("Cancelled", false)
		}
		return m, nil
	}

	if m.state.Screen() == ScreenSearch && m.searching {
		return m.handleSearchInputKey(msg)
	}

	if key.Matches(msg, m.keys.Abort) && m.cancel != nil {
		m.cancel()
		m.setStatus("Aborting...", false)
		return m, nil
	}

	if m.state.Screen() == ScreenDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleResultsKey(msg)
}

func (m Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.startSearch(m.input.Value())
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.state.Results()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(results)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		if m.cursor < len(results) {
			m.state.SelectResult(results[m.cursor])
		}
	}

	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	record := m.state.Selected()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.state.GoBack()

	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Install):
		m.confirm = &operation{action: "install", record: record}

	case key.Matches(msg, m.keys.Uninstall):
		m.confirm = &operation{action: "uninstall", record: record}

	case key.Matches(msg, m.keys.Up):
		m.log.LineUp(1)

	case key.Matches(msg, m.keys.Down):
		m.log.LineDown(1)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	title := "wingui"
	if m.state.Screen() == ScreenDetail {
		title += " › " + m.state.Selected().Name
	}
	if m.busy {
		title += " " + m.spinner.View()
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteByte('\n')

	if m.state.Screen() == ScreenDetail {
		m.renderDetail(&sb)
	} else {
		m.renderSearch(&sb)
	}

	if m.confirm != nil {
		sb.WriteString(confirmStyle.Render(fmt.Sprintf("%s %s (%s)? (y/n)",
			titleCase(m.confirm.action), m.confirm.record.Name, m.confirm.record.ID)))
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

	sb.WriteString(helpStyle.Render(m.helpView()))
	return sb.String()
}

func (m Model) renderSearch(sb *strings.Builder) {
	if m.searching {
		sb.WriteString(searchStyle.Render("Search: "))
		sb.WriteString(m.input.View())
	} else if m.lastQuery != "" {
		sb.WriteString(searchStyle.Render("Search: "))
		sb.WriteString(m.lastQuery)
	} else {
		sb.WriteString(searchStyle.Render("Press / to search"))
	}
	sb.WriteString("\n\n")

	if m.loading {
		sb.WriteString(m.spinner.View() + " Searching...")
		sb.WriteByte('\n')
		return
	}

	results := m.state.Results()
	if len(results) == 0 {
		if m.lastQuery != "" {
			sb.WriteString(emptyStyle.Render(fmt.Sprintf("No packages match '%s'", m.lastQuery)))
			sb.WriteByte('\n')
		}
		return
	}

	nameW, idW, versionW := columnWidths(m.width)
	header := fmt.Sprintf("  %s  %s  %s", truncate("NAME", nameW), truncate("ID", idW), truncate("VERSION", versionW))
	sb.WriteString(headerStyle.Render(header))
	if m.detailsLoaded < len(results) {
		sb.WriteString(pendingStyle.UnsetMarginTop().Render(fmt.Sprintf("  details %d/%d", m.detailsLoaded, len(results))))
	}
	sb.WriteByte('\n')

	start, end := visibleRange(m.cursor, len(results), m.height-searchChrome)
	for i := start; i < end; i++ {
		r := results[i]
		line := fmt.Sprintf("  %s  %s  %s",
			nameStyle.Render(truncate(r.Name, nameW)),
			idStyle.Render(truncate(r.ID, idW)),
			versionStyle.Render(truncate(r.Version, versionW)),
		)
		if i == m.cursor {
			sb.WriteString(selectedStyle.Render(fmt.Sprintf("> %s  %s  %s",
				truncate(r.Name, nameW), truncate(r.ID, idW), truncate(r.Version, versionW))))
		} else {
			sb.WriteString(normalStyle.Render(line))
		}
		sb.WriteByte('\n')
	}
}

func (m Model) renderDetail(sb *strings.Builder) {
	view := m.state.CurrentDetail()
	sb.WriteString(nameStyle.Render(view.Record.Name))
	sb.WriteString("  ")
	sb.WriteString(idStyle.Render(view.Record.ID))
	sb.WriteString("  ")
	sb.WriteString(versionStyle.Render(view.Record.Version))
	sb.WriteByte('\n')

	if view.Pending {
		sb.WriteString(pendingStyle.Render(m.spinner.View() + " " + view.Description))
	} else {
		sb.WriteString(descriptionStyle.Render(view.Description))
	}
	sb.WriteByte('\n')

	if m.output.Len() > 0 || m.busy {
		sb.WriteString(logStyle.Render(m.log.View()))
		sb.WriteByte('\n')
	}
}

func (m Model) helpView() string {
	if m.confirm != nil {
		return helpLine(m.keys.Confirm, m.keys.Cancel)
	}
	if m.state.Screen() == ScreenDetail {
		return helpLine(m.keys.Install, m.keys.Uninstall, m.keys.Abort, m.keys.Back, m.keys.Quit)
	}
	if m.searching {
		return "enter search • esc results"
	}
	return helpLine(m.keys.Up, m.keys.Down, m.keys.Open, m.keys.Search, m.keys.Quit)
}
