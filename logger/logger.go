// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger keeps a bounded, in-memory log of notable events. Only
// the outer layers of the emulator log; the CPU core reports through
// return values and trace observers instead.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Entry is a single line of the log.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	Repeated  int
}

func (e *Entry) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s: %s", e.Tag, e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.Repeated+1)
	}
	s.WriteByte('\n')
	return s.String()
}

// A Logger holds up to a maximum number of entries. Consecutive identical
// entries are folded into one entry with a repeat count.
type Logger struct {
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
	echo       io.Writer
}

// NewLogger creates a logger that keeps at most maxEntries entries.
func NewLogger(maxEntries int) *Logger {
	return &Logger{maxEntries: maxEntries}
}

// Log adds an entry.
func (l *Logger) Log(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.Repeated++
		e.Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		if len(l.entries) > l.maxEntries {
			l.entries = l.entries[len(l.entries)-l.maxEntries:]
		}
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil {
		io.WriteString(l.echo, e.String())
	}
}

// Logf adds a formatted entry.
func (l *Logger) Logf(tag, format string, args ...any) {
	l.Log(tag, fmt.Sprintf(format, args...))
}

// Clear removes all entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}

// Write writes every entry to w. It returns false if the log is empty.
func (l *Logger) Write(w io.Writer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		io.WriteString(w, l.entries[i].String())
	}
	return len(l.entries) > 0
}

// Tail writes the last n entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n < 0 {
		n = 0
	}
	for i := len(l.entries) - n; i < len(l.entries); i++ {
		io.WriteString(w, l.entries[i].String())
	}
}

// Len returns the number of entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SetEcho copies new entries to w as they are logged. A nil writer stops
// echoing.
func (l *Logger) SetEcho(w io.Writer) {
	l.mu.Lock()
	l.echo = w
	l.mu.Unlock()
}

// The central log shared by the whole program.
var central = NewLogger(maxCentral)

const maxCentral = 256

// Log adds an entry to the central log.
func Log(tag, detail string) {
	central.Log(tag, detail)
}

// Logf adds a formatted entry to the central log.
func Logf(tag, format string, args ...any) {
	central.Logf(tag, format, args...)
}

// Clear removes all entries from the central log.
func Clear() {
	central.Clear()
}

// Write writes the central log to w.
func Write(w io.Writer) bool {
	return central.Write(w)
}

// Tail writes the last n entries of the central log to w.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// SetEcho copies new central log entries to w.
func SetEcho(w io.Writer) {
	central.SetEcho(w)
}
