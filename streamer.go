package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

const (
	// CompletionMarker is appended once the child's output has ended.
	CompletionMarker = "Done."

	// maxChunkSize bounds a single line of child output.
	maxChunkSize = 1024 * 1024
)

// Outcome is the result of one live run.
type Outcome struct {
	Command  CommandRequest
	ExitCode int
	Err      error
}

// OK reports whether the command started and exited with status 0.
func (o Outcome) OK() bool {
	return o.Err == nil && o.ExitCode == 0
}

// Streamer runs package manager commands and renders their output live.
type Streamer struct {
	decoder Decoder
	logger  *slog.Logger
}

// NewStreamer returns a Streamer. A nil logger discards records.
func NewStreamer(decoder Decoder, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Streamer{decoder: decoder, logger: logger}
}

// Run executes cmd and writes its output into sink as it arrives.
// controls are disabled for the duration of the call and re-enabled
// exactly once on return, whether or not the process could be started.
// Failures are written to the sink; the returned Outcome carries them
// for callers that want to report a summary.
func (s *Streamer) Run(ctx context.Context, cmd CommandRequest, sink LineSink, controls BusyGuard) Outcome {
	controls.SetBusy(true)
	sink.Reset()
	defer func() {
		sink.Seal()
		controls.SetBusy(false)
	}()

	return s.stream(ctx, cmd, sink)
}

// RunBatch executes cmds one after another inside a single busy window.
// Every command is attempted even if an earlier one failed; only
// cancelling ctx stops the sequence.
func (s *Streamer) RunBatch(ctx context.Context, cmds []CommandRequest, sink LineSink, controls BusyGuard) []Outcome {
	controls.SetBusy(true)
	sink.Reset()
	defer func() {
		sink.Seal()
		controls.SetBusy(false)
	}()

	outcomes := make([]Outcome, 0, len(cmds))
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			sink.Append(fmt.Sprintf("Skipped %s: %v", cmd, err))
			outcomes = append(outcomes, Outcome{Command: cmd, ExitCode: -1, Err: err})
			continue
		}
		sink.Append("> " + cmd.String())
		outcome := s.stream(ctx, cmd, sink)
		if !outcome.OK() {
			s.logger.Warn("batch item failed", "command", cmd.String(), "exit_code", outcome.ExitCode, "error", outcome.Err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// stream spawns cmd with stdout and stderr merged, pumps its output into
// sink and waits for it to exit.
func (s *Streamer) stream(ctx context.Context, cmd CommandRequest, sink LineSink) Outcome {
	logger := s.logger.With("command", cmd.String())
	started := time.Now()

	c := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	pr, pw := io.Pipe()
	c.Stdout = pw
	c.Stderr = pw

	if err := c.Start(); err != nil {
		pw.Close()
		pr.Close()
		logger.Warn("spawn failed", "error", err)
		sink.Append(fmt.Sprintf("Error: %v", err))
		return Outcome{Command: cmd, ExitCode: -1, Err: fmt.Errorf("starting %s: %w", cmd.Executable, err)}
	}
	logger.Info("process started", "pid", c.Process.Pid)

	waited := make(chan error, 1)
	go func() {
		err := c.Wait()
		pw.Close()
		waited <- err
	}()

	readErr := s.pump(pr, sink)
	// Unblock the copy goroutine if we stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	waitErr := <-waited

	exit := exitInfo(ctx, waitErr)
	outcome := Outcome{Command: cmd, ExitCode: exit.Code, Err: exit.Err}
	if readErr != nil {
		sink.Append(fmt.Sprintf("Error: %v", readErr))
		if outcome.Err == nil {
			outcome.Err = fmt.Errorf("reading output of %s: %w", cmd.Executable, readErr)
		}
	}
	Apply(sink, StreamEvent{Kind: Terminated, Exit: exit})

	logger.Info("process exited", "exit_code", exit.Code, "duration", time.Since(started))
	return outcome
}

// pump reads r chunk by chunk and applies each classified chunk to sink
// in arrival order.
func (s *Streamer) pump(r io.Reader, sink LineSink) error {
	scanner := bufio.NewScanner(s.decoder.Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkSize)
	scanner.Split(splitChunks)
	for scanner.Scan() {
		ev := Classify(stripEscapes(scanner.Text()))
		s.logger.Debug("chunk", "kind", ev.Kind.String(), "text", ev.Text)
		Apply(sink, ev)
	}
	return scanner.Err()
}

// stripEscapes removes terminal escape sequences from a chunk while
// keeping its line terminator intact.
func stripEscapes(chunk string) string {
	body := strings.TrimRight(chunk, "\r\n")
	return ansi.Strip(body) + chunk[len(body):]
}

func exitInfo(ctx context.Context, err error) *ExitInfo {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ExitInfo{Code: -1, Err: ctxErr}
	}
	if err == nil {
		return &ExitInfo{}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero status is reported in the log, not as a failure
		// to run.
		return &ExitInfo{Code: exitErr.ExitCode()}
	}
	return &ExitInfo{Code: -1, Err: err}
}

// Apply writes one classified event to sink.
func Apply(sink LineSink, ev StreamEvent) {
	switch ev.Kind {
	case ProgressUpdate, SpinnerTick:
		sink.ReplaceLast(ev.Text)
	case FullLine:
		sink.Append(ev.Text)
	case Terminated:
		if ev.Exit != nil {
			switch {
			case errors.Is(ev.Exit.Err, context.Canceled), errors.Is(ev.Exit.Err, context.DeadlineExceeded):
				sink.Append("Cancelled.")
			case ev.Exit.Err != nil:
				sink.Append(fmt.Sprintf("Error: %v", ev.Exit.Err))
			case ev.Exit.Code != 0:
				sink.Append(fmt.Sprintf("Process exited with code %d", ev.Exit.Code))
			}
		}
		sink.Append(CompletionMarker)
	}
}
