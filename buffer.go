package main

import "sync"

// LineSink receives the rendered output of a live operation.
type LineSink interface {
	// Reset clears previous content and makes the sink writable.
	Reset()
	// Append adds a finished line.
	Append(line string)
	// ReplaceLast redraws the in-place progress line.
	ReplaceLast(line string)
	// Seal makes the sink read-only again.
	Seal()
}

// BusyGuard is the pair of controls that must not be used while an
// operation is running.
type BusyGuard interface {
	SetBusy(busy bool)
}

// DisplayBuffer is an append-only list of lines with a single in-place
// line at the tail for progress output. It is safe for concurrent use.
type DisplayBuffer struct {
	mu        sync.Mutex
	lines     []string
	transient bool // last line was written by ReplaceLast
	writable  bool
}

// NewDisplayBuffer returns an empty, read-only buffer.
func NewDisplayBuffer() *DisplayBuffer {
	return &DisplayBuffer{}
}

func (b *DisplayBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	b.transient = false
	b.writable = true
}

func (b *DisplayBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.writable {
		return
	}
	b.lines = append(b.lines, line)
	b.transient = false
}

// ReplaceLast overwrites the in-place line. When the tail is a finished
// line, a new in-place line is started below it instead, so progress
// never erases real output.
func (b *DisplayBuffer) ReplaceLast(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.writable {
		return
	}
	if b.transient && len(b.lines) > 0 {
		b.lines[len(b.lines)-1] = line
	} else {
		b.lines = append(b.lines, line)
	}
	b.transient = true
}

func (b *DisplayBuffer) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writable = false
}

// Writable reports whether the buffer currently accepts writes.
func (b *DisplayBuffer) Writable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writable
}

// Len returns the number of lines.
func (b *DisplayBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Last returns the most recent line, or "" when empty.
func (b *DisplayBuffer) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return ""
	}
	return b.lines[len(b.lines)-1]
}

// Lines returns a copy of the buffer's lines.
func (b *DisplayBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}
