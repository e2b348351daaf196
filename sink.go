package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// BusyFunc adapts a function to BusyGuard.
type BusyFunc func(busy bool)

func (f BusyFunc) SetBusy(busy bool) { f(busy) }

// programRelay forwards messages from worker goroutines into the
// bubbletea program. The program is set after it is constructed;
// messages sent before that are dropped.
type programRelay struct {
	program atomic.Pointer[tea.Program]
}

func newProgramRelay() *programRelay {
	return &programRelay{}
}

// SetProgram sets the program that receives messages. Safe to call from
// any goroutine.
func (r *programRelay) SetProgram(p *tea.Program) {
	r.program.Store(p)
}

// Send delivers msg to the event loop. It blocks until the loop has
// accepted the message, which keeps sends from one goroutine in order.
func (r *programRelay) Send(msg tea.Msg) {
	if p := r.program.Load(); p != nil {
		p.Send(msg)
	}
}

// teaSink is the LineSink and BusyGuard handed to the streamer by the
// TUI. It never touches model state itself: every mutation is marshalled
// onto the UI loop as a message and applied there.
type teaSink struct {
	send func(tea.Msg)
}

func newTeaSink(send func(tea.Msg)) *teaSink {
	return &teaSink{send: send}
}

func (s *teaSink) Reset()                  { s.send(sinkMsg{op: sinkReset}) }
func (s *teaSink) Append(line string)      { s.send(sinkMsg{op: sinkAppend, text: line}) }
func (s *teaSink) ReplaceLast(line string) { s.send(sinkMsg{op: sinkReplace, text: line}) }
func (s *teaSink) Seal()                   { s.send(sinkMsg{op: sinkSeal}) }
func (s *teaSink) SetBusy(busy bool)       { s.send(busyMsg{busy: busy}) }

// applySinkMsg replays a marshalled mutation onto buf.
func applySinkMsg(buf *DisplayBuffer, msg sinkMsg) {
	switch msg.op {
	case sinkReset:
		buf.Reset()
	case sinkAppend:
		buf.Append(msg.text)
	case sinkReplace:
		buf.ReplaceLast(msg.text)
	case sinkSeal:
		buf.Seal()
	}
}

// terminalSink writes a live operation to a terminal for the
// non-interactive subcommands. On a TTY the progress line is redrawn in
// place; otherwise each distinct progress line is printed once.
type terminalSink struct {
	mu        sync.Mutex
	out       *termenv.Output
	tty       bool
	transient bool
	last      string
}

func newTerminalSink(w io.Writer) *terminalSink {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &terminalSink{out: termenv.NewOutput(w), tty: tty}
}

func (s *terminalSink) Reset() {}

func (s *terminalSink) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTransient()
	fmt.Fprintln(s.out, line)
	s.last = line
}

func (s *terminalSink) ReplaceLast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tty {
		if line != s.last {
			fmt.Fprintln(s.out, line)
			s.last = line
		}
		return
	}
	if s.transient {
		s.out.ClearLine()
		fmt.Fprint(s.out, "\r")
	}
	fmt.Fprint(s.out, line)
	s.transient = true
	s.last = line
}

func (s *terminalSink) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTransient()
}

// endTransient moves past an in-place line so the next write starts on
// a fresh line.
func (s *terminalSink) endTransient() {
	if s.transient {
		fmt.Fprintln(s.out)
		s.transient = false
	}
}
