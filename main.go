// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/nes6502/host"
	"github.com/beevik/nes6502/statsview"
	"github.com/beevik/term"
)

var (
	rom     string
	nestest bool
	stats   bool
)

func init() {
	flag.StringVar(&rom, "rom", "", "load an iNES cartridge image")
	flag.BoolVar(&nestest, "nestest", false, "start the cartridge at the nestest automation entry ($C000)")
	flag.BoolVar(&stats, "stats", false, "launch the runtime statistics server")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: nes6502 [options] [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	h := host.New()

	if stats {
		statsview.Launch(os.Stdout)
	}

	// Load the cartridge if requested.
	if rom != "" {
		var err error
		if nestest {
			err = h.LoadNestest(rom)
		} else {
			err = h.LoadCartridge(rom, -1)
		}
		if err != nil {
			exitOnError(err)
		}
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands from stdin, prompting only when it is a terminal.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	h.RunCommands(os.Stdin, os.Stdout, interactive)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
