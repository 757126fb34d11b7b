// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/cmd"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/nes6502/logger"
	"github.com/bradleyjkemp/memviz"
	"github.com/pkg/errors"
)

// A cpuSnapshot is the part of the CPU state drawn by the memviz command.
type cpuSnapshot struct {
	PC          string
	Registers   string
	Flags       string
	Cycles      uint64
	Instruction *instructionSnapshot
	Pending     []string
	Breakpoints []*cpu.Breakpoint
	Watches     []*cpu.DataBreakpoint
}

type instructionSnapshot struct {
	Name       string
	Mode       string
	Opcode     byte
	Unofficial bool
}

func (h *Host) snapshot() *cpuSnapshot {
	r := h.cpu.Reg
	s := &cpuSnapshot{
		PC:          r.PC.String(),
		Registers:   r.String(),
		Flags:       r.P().String(),
		Cycles:      h.cpu.Cycles,
		Breakpoints: h.debugger.GetBreakpoints(),
		Watches:     h.debugger.GetDataBreakpoints(),
	}
	if inst := h.cpu.Instruction(); inst != nil {
		s.Instruction = &instructionSnapshot{
			Name:       inst.Name,
			Mode:       inst.Mode.String(),
			Opcode:     inst.Opcode,
			Unofficial: inst.Unofficial,
		}
	}
	for _, k := range h.cpu.Pending() {
		s.Pending = append(s.Pending, k.String())
	}
	return s
}

func (h *Host) writeMemviz(w io.Writer) {
	memviz.Map(w, h.snapshot())
}

func (h *Host) cmdMemviz(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	f, err := os.Create(c.Args[0])
	if err != nil {
		return errors.Wrap(err, "memviz")
	}
	defer f.Close()

	h.writeMemviz(f)
	logger.Logf("host", "memviz graph written to %s", filepath.Base(c.Args[0]))
	h.printf("CPU state graph written to '%s'.\n", filepath.Base(c.Args[0]))
	return nil
}
