package main

import (
	"bytes"
	"context"
	"reflect"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// messageRecorder is a send func that keeps every message
type messageRecorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *messageRecorder) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *messageRecorder) messages() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestTeaSinkMarshalsInOrder(t *testing.T) {
	rec := &messageRecorder{}
	sink := newTeaSink(rec.send)

	sink.SetBusy(true)
	sink.Reset()
	sink.Append("line")
	sink.ReplaceLast("42%")
	sink.Seal()
	sink.SetBusy(false)

	expected := []tea.Msg{
		busyMsg{busy: true},
		sinkMsg{op: sinkReset},
		sinkMsg{op: sinkAppend, text: "line"},
		sinkMsg{op: sinkReplace, text: "42%"},
		sinkMsg{op: sinkSeal},
		busyMsg{busy: false},
	}
	if got := rec.messages(); !reflect.DeepEqual(got, expected) {
		t.Errorf("messages = %#v, expected %#v", got, expected)
	}
}

func TestApplySinkMsgReplaysRun(t *testing.T) {
	rec := &messageRecorder{}
	sink := newTeaSink(rec.send)

	newTestStreamer().Run(context.Background(), helperCommand("install"), sink, sink)

	buf := NewDisplayBuffer()
	busy := []bool{}
	for _, msg := range rec.messages() {
		switch msg := msg.(type) {
		case sinkMsg:
			applySinkMsg(buf, msg)
		case busyMsg:
			busy = append(busy, msg.busy)
		}
	}

	expected := []string{"Found Foo App [Foo.App] Version 1.2.3", "42%", "Installing done", CompletionMarker}
	if got := buf.Lines(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Lines() = %q, expected %q", got, expected)
	}
	if !reflect.DeepEqual(busy, []bool{true, false}) {
		t.Errorf("busy = %v, expected [true false]", busy)
	}
}

func TestProgramRelayWithoutProgram(t *testing.T) {
	relay := newProgramRelay()
	// Dropped, must not panic.
	relay.Send(busyMsg{busy: true})
}

func TestTerminalSinkPlainOutput(t *testing.T) {
	var out bytes.Buffer
	sink := newTerminalSink(&out)
	if sink.tty {
		t.Fatal("a bytes.Buffer is not a terminal")
	}

	sink.Reset()
	sink.Append("Found Foo")
	sink.ReplaceLast("10%")
	sink.ReplaceLast("10%")
	sink.ReplaceLast("20%")
	sink.Append("Installing done")
	sink.Seal()

	expected := "Found Foo\n10%\n20%\nInstalling done\n"
	if out.String() != expected {
		t.Errorf("output = %q, expected %q", out.String(), expected)
	}
}

func TestBusyFunc(t *testing.T) {
	var calls []bool
	var guard BusyGuard = BusyFunc(func(busy bool) { calls = append(calls, busy) })
	guard.SetBusy(true)
	guard.SetBusy(false)
	if !reflect.DeepEqual(calls, []bool{true, false}) {
		t.Errorf("calls = %v", calls)
	}
}
