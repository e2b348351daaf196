package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultExecutable is the package manager binary wingui drives.
const DefaultExecutable = "winget"

// ErrEmptyQuery is returned when a search is issued without a term.
var ErrEmptyQuery = errors.New("please enter a search term")

// CommandRequest is one invocation of the package manager. Arguments
// are kept as a discrete vector and handed to exec without a shell, so
// identifiers and queries are never re-parsed.
type CommandRequest struct {
	Executable string
	Args       []string
	Env        []string // extra KEY=VALUE entries on top of the parent environment
}

// String renders the request for log headers. It is not meant to be
// fed back to a shell.
func (c CommandRequest) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Executable)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Winget builds CommandRequests for every operation the front-end
// performs.
type Winget struct {
	Executable       string
	Source           string
	AcceptAgreements bool
	SilentUpgrades   bool
}

// NewWinget returns a builder configured from cfg.
func NewWinget(cfg *Config) *Winget {
	w := &Winget{
		Executable:       DefaultExecutable,
		AcceptAgreements: true,
	}
	if cfg == nil {
		return w
	}
	if cfg.Executable != "" {
		w.Executable = cfg.Executable
	}
	w.Source = cfg.Source
	w.AcceptAgreements = cfg.AcceptAgreements
	w.SilentUpgrades = cfg.SilentUpgrades
	return w
}

func (w *Winget) request(args ...string) CommandRequest {
	return CommandRequest{Executable: w.Executable, Args: args}
}

func (w *Winget) withSource(args []string) []string {
	if w.Source != "" {
		args = append(args, "--source", w.Source)
	}
	return args
}

func (w *Winget) sourceAgreement(args []string) []string {
	if w.AcceptAgreements {
		args = append(args, "--accept-source-agreements")
	}
	return args
}

func (w *Winget) packageAgreements(args []string) []string {
	if w.AcceptAgreements {
		args = append(args, "--accept-source-agreements", "--accept-package-agreements")
	}
	return args
}

// Search lists packages matching query.
func (w *Winget) Search(query string) CommandRequest {
	args := w.withSource([]string{"search", "--query", query})
	return w.request(w.sourceAgreement(args)...)
}

// Show prints the manifest summary for one identifier.
func (w *Winget) Show(id string) CommandRequest {
	args := w.withSource([]string{"show", "--id", id, "--exact"})
	return w.request(w.sourceAgreement(args)...)
}

// Install installs the package with the exact identifier id.
func (w *Winget) Install(id string) CommandRequest {
	args := w.withSource([]string{"install", "--id", id, "--exact"})
	return w.request(w.packageAgreements(args)...)
}

// Uninstall removes the package with the exact identifier id.
func (w *Winget) Uninstall(id string) CommandRequest {
	return w.request("uninstall", "--id", id, "--exact")
}

// ListUpgrades lists installed packages with a newer version available.
func (w *Winget) ListUpgrades() CommandRequest {
	return w.request(w.sourceAgreement([]string{"upgrade"})...)
}

// Upgrade upgrades one package.
func (w *Winget) Upgrade(id string) CommandRequest {
	args := w.packageAgreements([]string{"upgrade", "--id", id, "--exact"})
	if w.SilentUpgrades {
		args = append(args, "--silent")
	}
	return w.request(args...)
}

// UpgradeAll upgrades one request per identifier, in order.
func (w *Winget) UpgradeAll(ids []string) []CommandRequest {
	cmds := make([]CommandRequest, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, w.Upgrade(id))
	}
	return cmds
}

// PackageSource runs captured (non-streamed) package manager queries.
type PackageSource interface {
	Search(ctx context.Context, query string) ([]PackageRecord, error)
	Show(ctx context.Context, id string) (string, error)
	Upgrades(ctx context.Context) ([]UpgradeCandidate, error)
}

// CommandRunner captures the full output of one command.
type CommandRunner func(ctx context.Context, cmd CommandRequest) (string, error)

// WingetSource implements PackageSource by running winget and parsing
// what it prints.
type WingetSource struct {
	winget  *Winget
	run     CommandRunner
	decoder Decoder
}

// NewWingetSource returns a source that runs real processes.
func NewWingetSource(w *Winget, decoder Decoder) *WingetSource {
	s := &WingetSource{winget: w, decoder: decoder}
	s.run = s.capture
	return s
}

// Search runs a search and parses the result table. Surrounding
// whitespace is trimmed from query; an empty query is rejected.
func (s *WingetSource) Search(ctx context.Context, query string) ([]PackageRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	output, err := s.run(ctx, s.winget.Search(query))
	if err != nil && strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}
	// winget exits non-zero when nothing matched; the table parser
	// recognises that case from the text.
	return ParseTable(output)
}

// Show returns the raw show output for id.
func (s *WingetSource) Show(ctx context.Context, id string) (string, error) {
	output, err := s.run(ctx, s.winget.Show(id))
	if err != nil && strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("showing %s: %w", id, err)
	}
	return output, nil
}

// Upgrades lists the packages that have an update available.
func (s *WingetSource) Upgrades(ctx context.Context) ([]UpgradeCandidate, error) {
	output, err := s.run(ctx, s.winget.ListUpgrades())
	if err != nil && strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("listing upgrades: %w", err)
	}
	return ParseUpgradeTable(output)
}

// capture runs cmd to completion and returns its decoded stdout. The
// output is returned alongside any exit error so callers can still
// parse it.
func (s *WingetSource) capture(ctx context.Context, cmd CommandRequest) (string, error) {
	var stdout bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = &stdout
	err := c.Run()
	text, decodeErr := s.decoder.DecodeString(stdout.String())
	if decodeErr != nil {
		text = stdout.String()
	}
	return text, err
}
