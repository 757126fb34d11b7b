// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package statsview publishes live runtime charts (heap, goroutines, GC
// pauses) of the running emulator, along with the pprof handlers, over
// HTTP. The charting backend is compiled in only with the statsview build
// tag; without it every Server reports ErrUnavailable.
package statsview

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/beevik/nes6502/logger"
)

// DefaultAddr is the listen address of the shared server started by
// Launch.
const DefaultAddr = "localhost:12600"

const chartsPath = "/debug/statsview"

// ErrUnavailable is returned by Start when the charting backend was not
// built in.
var ErrUnavailable = errors.New("statsview: not built in (rebuild with -tags statsview)")

// A Server serves runtime statistics charts on Addr, sampling every
// Interval.
type Server struct {
	Addr     string
	Interval time.Duration

	mu   sync.Mutex
	stop func()
}

// URL returns the address of the charts page.
func (s *Server) URL() string {
	return "http://" + s.Addr + chartsPath
}

// Start begins serving in the background. Starting a running server does
// nothing.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	stop, err := serve(s.Addr, interval)
	if err != nil {
		return err
	}
	s.stop = stop
	logger.Logf("statsview", "serving %s", s.URL())
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		s.stop()
		s.stop = nil
		logger.Log("statsview", "stopped")
	}
}

// Running returns true while the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

var shared = &Server{Addr: DefaultAddr}

// Launch starts the shared server on DefaultAddr and writes its URL, or
// the reason it could not start, to output.
func Launch(output io.Writer) {
	if err := shared.Start(); err != nil {
		fmt.Fprintln(output, err)
		return
	}
	fmt.Fprintf(output, "Runtime statistics at %s\n", shared.URL())
}

// Available returns true if the charting backend was built in.
func Available() bool {
	return backend
}
