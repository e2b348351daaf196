package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// helperCommand runs this test binary as a fake package manager that
// behaves according to scenario.
func helperCommand(scenario string) CommandRequest {
	return CommandRequest{
		Executable: os.Args[0],
		Args:       []string{"-test.run=^TestHelperProcess$", "--", scenario},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1", "WINGUI_TEST_VALUE=from-env"},
	}
}

// TestHelperProcess is not a real test; it is the child process started
// by helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no scenario")
		os.Exit(2)
	}

	switch args[1] {
	case "install":
		fmt.Print("Found Foo App [Foo.App] Version 1.2.3\n")
		fmt.Print("10%\r")
		fmt.Print("42%\r")
		fmt.Print("Installing done\n")
		os.Exit(0)
	case "fail":
		fmt.Print("Installer failed\n")
		os.Exit(3)
	case "stderr":
		fmt.Print("to stdout\n")
		os.Stdout.Sync()
		fmt.Fprint(os.Stderr, "to stderr\n")
		os.Exit(0)
	case "ansi":
		fmt.Print("\x1b[32mSuccessfully installed\x1b[0m\n")
		os.Exit(0)
	case "cp1252":
		os.Stdout.Write([]byte("caf\xe9\n"))
		os.Exit(0)
	case "env":
		fmt.Println(os.Getenv("WINGUI_TEST_VALUE"))
		os.Exit(0)
	case "sleep":
		fmt.Print("waiting\n")
		time.Sleep(30 * time.Second)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", args[1])
		os.Exit(2)
	}
}

// recordingGuard records every SetBusy call
type recordingGuard struct {
	mu    sync.Mutex
	calls []bool
}

func (g *recordingGuard) SetBusy(busy bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, busy)
}

func (g *recordingGuard) Calls() []bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]bool(nil), g.calls...)
}

func newTestStreamer() *Streamer {
	return NewStreamer(Decoder{}, nil)
}

func TestStreamerRun(t *testing.T) {
	buf := NewDisplayBuffer()
	guard := &recordingGuard{}

	outcome := newTestStreamer().Run(context.Background(), helperCommand("install"), buf, guard)

	if !outcome.OK() {
		t.Fatalf("expected success, got exit %d err %v", outcome.ExitCode, outcome.Err)
	}
	expected := []string{"Found Foo App [Foo.App] Version 1.2.3", "42%", "Installing done", CompletionMarker}
	if got := buf.Lines(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Lines() = %q, expected %q", got, expected)
	}
	if got := guard.Calls(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("SetBusy calls = %v, expected [true false]", got)
	}
	if buf.Writable() {
		t.Error("buffer should be sealed after the run")
	}
}

func TestStreamerRunSpawnFailure(t *testing.T) {
	buf := NewDisplayBuffer()
	guard := &recordingGuard{}
	cmd := CommandRequest{Executable: "/nonexistent/wingui-missing-binary", Args: []string{"install"}}

	outcome := newTestStreamer().Run(context.Background(), cmd, buf, guard)

	if outcome.Err == nil || outcome.ExitCode != -1 {
		t.Fatalf("expected a spawn error, got %+v", outcome)
	}
	if got := guard.Calls(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("SetBusy calls = %v, expected exactly one disable and one enable", got)
	}
	lines := buf.Lines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "Error: ") {
		t.Errorf("expected a single error line, got %q", lines)
	}
	if buf.Writable() {
		t.Error("buffer should be sealed after a failed spawn")
	}
}

func TestStreamerRunNonZeroExit(t *testing.T) {
	buf := NewDisplayBuffer()
	outcome := newTestStreamer().Run(context.Background(), helperCommand("fail"), buf, BusyFunc(func(bool) {}))

	if outcome.ExitCode != 3 || outcome.Err != nil {
		t.Errorf("expected exit 3 without error, got %+v", outcome)
	}
	if outcome.OK() {
		t.Error("non-zero exit should not be OK")
	}
	expected := []string{"Installer failed", "Process exited with code 3", CompletionMarker}
	if got := buf.Lines(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Lines() = %q, expected %q", got, expected)
	}
}

func TestStreamerRunOutputHandling(t *testing.T) {
	cp1252, err := NewDecoder("windows-1252")
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	tests := []struct {
		name     string
		scenario string
		decoder  Decoder
		expected []string
	}{
		{
			name:     "stderr merged in order",
			scenario: "stderr",
			expected: []string{"to stdout", "to stderr", CompletionMarker},
		},
		{
			name:     "escape sequences stripped",
			scenario: "ansi",
			expected: []string{"Successfully installed", CompletionMarker},
		},
		{
			name:     "legacy code page decoded",
			scenario: "cp1252",
			decoder:  cp1252,
			expected: []string{"café", CompletionMarker},
		},
		{
			name:     "invalid utf-8 replaced",
			scenario: "cp1252",
			expected: []string{"caf�", CompletionMarker},
		},
		{
			name:     "extra environment",
			scenario: "env",
			expected: []string{"from-env", CompletionMarker},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewDisplayBuffer()
			s := NewStreamer(tt.decoder, nil)
			outcome := s.Run(context.Background(), helperCommand(tt.scenario), buf, BusyFunc(func(bool) {}))
			if !outcome.OK() {
				t.Fatalf("unexpected failure: %+v", outcome)
			}
			if got := buf.Lines(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lines() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestStreamerRunCancel(t *testing.T) {
	buf := NewDisplayBuffer()
	guard := &recordingGuard{}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := newTestStreamer().Run(ctx, helperCommand("sleep"), buf, guard)

	if time.Since(start) > 10*time.Second {
		t.Fatal("cancelling did not stop the child")
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", outcome.Err)
	}
	lines := buf.Lines()
	if len(lines) < 2 || lines[len(lines)-2] != "Cancelled." || lines[len(lines)-1] != CompletionMarker {
		t.Errorf("expected to end with Cancelled. and Done., got %q", lines)
	}
	if got := guard.Calls(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("SetBusy calls = %v", got)
	}
}

func TestStreamerRunBatch(t *testing.T) {
	buf := NewDisplayBuffer()
	guard := &recordingGuard{}
	cmds := []CommandRequest{
		helperCommand("fail"),
		{Executable: "/nonexistent/wingui-missing-binary"},
		helperCommand("install"),
	}

	outcomes := newTestStreamer().RunBatch(context.Background(), cmds, buf, guard)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].ExitCode != 3 {
		t.Errorf("first: expected exit 3, got %+v", outcomes[0])
	}
	if outcomes[1].Err == nil {
		t.Errorf("second: expected spawn error, got %+v", outcomes[1])
	}
	if !outcomes[2].OK() {
		t.Errorf("third: a failure earlier in the batch should not affect it, got %+v", outcomes[2])
	}
	if got := guard.Calls(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("a batch should be one busy window, SetBusy calls = %v", got)
	}

	headers := 0
	for _, line := range buf.Lines() {
		if strings.HasPrefix(line, "> ") {
			headers++
		}
	}
	if headers != 3 {
		t.Errorf("expected 3 command headers, got %d in %q", headers, buf.Lines())
	}
	if buf.Last() != CompletionMarker {
		t.Errorf("expected the log to end with %q, got %q", CompletionMarker, buf.Last())
	}
}

func TestStreamerRunBatchCancelled(t *testing.T) {
	buf := NewDisplayBuffer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := newTestStreamer().RunBatch(ctx, []CommandRequest{helperCommand("install"), helperCommand("install")}, buf, BusyFunc(func(bool) {}))

	for i, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome %d: expected context.Canceled, got %v", i, o.Err)
		}
	}
	for _, line := range buf.Lines() {
		if !strings.HasPrefix(line, "Skipped ") {
			t.Errorf("unexpected line %q", line)
		}
	}
}

func TestExitInfo(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	boom := errors.New("boom")

	tests := []struct {
		name     string
		ctx      context.Context
		err      error
		expected ExitInfo
	}{
		{"success", context.Background(), nil, ExitInfo{}},
		{"other error", context.Background(), boom, ExitInfo{Code: -1, Err: boom}},
		{"cancelled", canceled, boom, ExitInfo{Code: -1, Err: context.Canceled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitInfo(tt.ctx, tt.err)
			if !reflect.DeepEqual(*got, tt.expected) {
				t.Errorf("exitInfo() = %+v, expected %+v", *got, tt.expected)
			}
		})
	}
}
