// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive monitor for the emulated
// console. It accepts commands that load cartridges, step the CPU by
// instruction or by clock cycle, set breakpoints, inspect memory, trace
// execution in conformance log format and run Lua scripts.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cart"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/nes6502/disasm"
	"github.com/beevik/nes6502/logger"
	"github.com/beevik/nes6502/nes"
	"github.com/beevik/nes6502/nestest"
	"github.com/beevik/nes6502/statsview"
	pkgerrors "github.com/pkg/errors"
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles

	displayAll = displayRegisters | displayCycles
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateInterrupted
	stateBreakpoint
	stateStepOverBreakpoint
	stateHalted
)

var errQuit = errors.New("exiting program")

// SandboxRegion is filled with RAM when no cartridge is loaded, so that
// programs and vectors can be entered by hand.
var SandboxRegion = bus.AddressRange{Start: 0x4020, End: 0xffff}

// A Host represents an emulated console, a built-in debugger, and other
// useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	console     *nes.Console
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	lastCmd     *cmd.Selection
	state       state
	interrupted atomic.Bool
	exprParser  *exprParser
	settings    *settings
	stepOver    bus.Address // address of the step-over breakpoint, if active
	stepping    bool
	irq         bool
	annotation  string         // operand text of the instruction being traced
	lastCycle   cpu.CycleTrace // most recent bus cycle
	traceOut    io.Writer
	traceFile   *os.File
}

// New creates a new host with an empty console: 2KB of RAM and sandbox
// RAM filling the cartridge space.
func New() *Host {
	h := &Host{
		output:     bufio.NewWriter(os.Stdout),
		state:      stateProcessingCommands,
		exprParser: newExprParser(),
		settings:   newSettings(),
	}

	// Create a CPU debugger. It is carried over when the console is
	// rebuilt by a cartridge load.
	h.debugger = cpu.NewDebugger(breakHandler{h})

	n, err := h.newConsole(nil)
	if err != nil {
		panic(err)
	}
	h.attach(n)
	return h
}

// Console returns the console the host is driving.
func (h *Host) Console() *nes.Console {
	return h.console
}

func (h *Host) consoleOptions(sandbox bool) []nes.Option {
	opts := []nes.Option{
		nes.WithCPUOptions(cpu.WithTracer(h.onInstruction), cpu.WithCycleTracer(h.onCycle)),
	}
	if sandbox {
		size := int(SandboxRegion.End-SandboxRegion.Start) + 1
		ram := bus.NewRAM(SandboxRegion.Start, size)
		opts = append(opts, nes.WithDevice("sandbox", SandboxRegion, ram))
	}
	return opts
}

func (h *Host) newConsole(c *cart.Cartridge) (*nes.Console, error) {
	return nes.New(c, h.consoleOptions(c == nil)...)
}

func (h *Host) attach(n *nes.Console) {
	h.console = n
	h.cpu = n.CPU
	h.cpu.AttachDebugger(h.debugger)
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
}

// LoadCartridge loads an iNES image and rebuilds the console around it.
// If entry is negative the CPU is reset; otherwise execution starts at
// entry.
func (h *Host) LoadCartridge(filename string, entry int) error {
	c, err := cart.Load(filename)
	if err != nil {
		return err
	}
	n, err := h.newConsole(c)
	if err != nil {
		return pkgerrors.Wrapf(err, "load %s", filepath.Base(filename))
	}
	h.attach(n)

	if entry < 0 {
		if err := n.Reset(); err != nil {
			return pkgerrors.Wrap(err, "reset")
		}
	} else {
		h.cpu.SetPC(bus.Address(entry))
	}

	logger.Logf("host", "loaded %s: PRG %dKB, CHR %dKB, mapper %d, %s mirroring",
		filepath.Base(filename), len(c.PRG)/1024, len(c.CHR)/1024, c.Mapper, c.Mirroring)
	return nil
}

// LoadNestest loads the nestest ROM and points the CPU at its automated
// entry point.
func (h *Host) LoadNestest(filename string) error {
	n, err := nes.LoadNestest(filename, h.consoleOptions(false)...)
	if err != nil {
		return err
	}
	h.attach(n)
	return nil
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	h.onSettingsUpdate()

	if interactive {
		h.println()
	}

	h.displayPC()
	h.runCommands(r)
	h.flush()
}

// runCommands processes commands until the input ends or a quit command
// is executed. It returns errQuit in the latter case.
func (h *Host) runCommands(r io.Reader) error {
	input := h.input
	h.input = bufio.NewScanner(r)
	defer func() { h.input = input }()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil && h.interactive {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		handler, ok := c.Command.Data.(func(*Host, cmd.Selection) error)
		if !ok {
			h.displayGroup(strings.Fields(line)[0])
			continue
		}
		h.lastCmd = &c

		if err := handler(h, c); err != nil {
			if errors.Is(err, errQuit) {
				return err
			}
			h.printf("ERROR: %v\n", err)
		}
	}
}

// Break interrupts a running CPU. It may be called from any goroutine.
func (h *Host) Break() {
	h.interrupted.Store(true)
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	}
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Hits")
	h.println("----- -------  ----")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("%s %-5v    %d\n", b.Address, !b.Disabled, b.Hits)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at %s.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	b, ok := h.selectBreakpoint(c)
	if !ok {
		return nil
	}

	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at %s removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	b, ok := h.selectBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = false
	h.printf("Breakpoint at %s enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	b, ok := h.selectBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = true
	h.printf("Breakpoint at %s disabled.\n", b.Address)
	return nil
}

// selectBreakpoint finds the breakpoint named by the first argument,
// reporting to the user when there is none.
func (h *Host) selectBreakpoint(c cmd.Selection) (*cpu.Breakpoint, bool) {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil, false
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil, false
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on %s.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Value  Hits")
	h.println("----- -------  -----  ----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("%s %-5v    $%02X    %d\n", b.Address, !b.Disabled, b.Value, b.Hits)
		} else {
			h.printf("%s %-5v    <none> %d\n", b.Address, !b.Disabled, b.Hits)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at %s for value $%02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at %s.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	b, ok := h.selectDataBreakpoint(c)
	if !ok {
		return nil
	}

	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at %s removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	b, ok := h.selectDataBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = false
	h.printf("Data breakpoint at %s enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	b, ok := h.selectDataBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = true
	h.printf("Data breakpoint at %s disabled.\n", b.Address)
	return nil
}

func (h *Host) selectDataBreakpoint(c cmd.Selection) (*cpu.DataBreakpoint, bool) {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil, false
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil, false
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on %s.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	addr, err := h.parseAddrArg(c.Args[0], h.settings.NextDisasmAddr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, 0)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = uint16(addr)
	h.lastCmd.Args = []string{"$", strconv.Itoa(lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (h *Host) cmdExecute(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(c.Args[0]), err)
		return nil
	}
	defer file.Close()

	interactive := h.interactive
	h.interactive = false
	err = h.runCommands(file)
	h.interactive = interactive
	return err
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(helpRoot)
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if e := lookupHelp(s); err == nil && e != nil {
		h.displayHelpEntry(e)
		return nil
	}

	if g, err := helpGroups.FindValue(strings.ToLower(c.Args[0])); err == nil {
		h.displayCommands(g)
		return nil
	}

	if err == nil {
		err = cmd.ErrNotFound
	}
	h.printf("%v\n", err)
	return nil
}

func (h *Host) cmdInterruptNMI(c cmd.Selection) error {
	h.cpu.NMI()
	h.println("NMI signaled.")
	return nil
}

func (h *Host) cmdInterruptIRQ(c cmd.Selection) error {
	if len(c.Args) > 0 {
		on, err := stringToBool(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.irq = on
		h.cpu.SetIRQ(on)
	}

	if h.irq {
		h.println("IRQ line active.")
	} else {
		h.println("IRQ line inactive.")
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	entry := -1
	if len(c.Args) > 1 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		entry = int(addr)
	}

	if err := h.LoadCartridge(c.Args[0], entry); err != nil {
		return err
	}

	m := h.console.Mapper
	h.printf("Loaded '%s' (mapper %d) at %s.\n", filepath.Base(c.Args[0]), m.ID(), m.Region())
	h.displayPC()
	return nil
}

func (h *Host) cmdLog(c cmd.Selection) error {
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		logger.Tail(h.output, int(n))
		h.flush()
		return nil
	}

	if !logger.Write(h.output) {
		h.println("Log is empty.")
	}
	h.flush()
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	addr, err := h.parseAddrArg(c.Args[0], h.settings.NextMemDumpAddr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	bytes := bus.Address(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		bytes, err = h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = uint16(addr + bytes)
	h.lastCmd.Args = []string{"$", strconv.Itoa(int(bytes))}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	for _, arg := range c.Args[1:] {
		v, err := h.parseExpr(arg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.console.Bus.Write(addr, byte(v))
		addr++
	}
	return nil
}

func (h *Host) cmdMemoryCopy(c cmd.Selection) error {
	if len(c.Args) < 3 {
		h.displayHelpText(c)
		return nil
	}

	var addr [3]bus.Address
	for i := range addr {
		a, err := h.parseExpr(c.Args[i])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr[i] = a
	}

	dst, start, end := addr[0], addr[1], addr[2]
	if end < start {
		h.printf("Source range %s-%s is empty.\n", start, end)
		return nil
	}

	// Copy through a buffer so overlapping ranges behave.
	buf := make([]byte, int(end-start)+1)
	for i := range buf {
		buf[i] = h.console.Bus.Peek(start + bus.Address(i))
	}
	for i, v := range buf {
		h.console.Bus.Write(dst+bus.Address(i), v)
	}

	h.printf("Copied %d bytes from %s to %s.\n", len(buf), start, dst)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	case 1:
		h.displayHelpText(c)
	default:
		v, err := h.exprParser.Parse(strings.Join(c.Args[1:], " "), h)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		msg, err := setRegister(&h.cpu.Reg, c.Args[0], v)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.println(msg)
	}
	return nil
}

func (h *Host) cmdReset(c cmd.Selection) error {
	if err := h.console.Reset(); err != nil {
		return err
	}
	logger.Logf("host", "reset to %s", h.cpu.Reg.PC)
	h.settings.NextDisasmAddr = uint16(h.cpu.Reg.PC)
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from %s. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	h.state = stateRunning
	for h.state == stateRunning {
		h.step()
	}
	h.finishRun()
	return nil
}

func (h *Host) cmdScript(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	if err := h.runScript(c.Args[0]); err != nil {
		logger.Logf("script", "%s: %v", filepath.Base(c.Args[0]), err)
		return pkgerrors.Wrapf(err, "script %s", filepath.Base(c.Args[0]))
	}
	return nil
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int64
			v, err = h.exprParser.Parse(value, h)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.printf("%s updated.\n", h.settings.Name(key))
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStats(c cmd.Selection) error {
	statsview.Launch(h.output)
	h.flush()
	return nil
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	count := h.parseCount(c)

	// Step the CPU count times.
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		h.step()
		h.displayStep(i)
	}
	h.finishStep()
	return nil
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	count := h.parseCount(c)

	// Step over the next instruction count times.
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		h.stepOverInstruction()
		h.displayStep(i)
	}
	h.finishStep()
	return nil
}

func (h *Host) cmdStepOut(c cmd.Selection) error {
	h.state = stateRunning
	depth := 0
	for h.state == stateRunning {
		inst := h.cpu.GetInstruction(h.cpu.Reg.PC)
		h.step()
		if inst == nil {
			continue
		}
		switch inst.Name {
		case "JSR":
			depth++
		case "RTS", "RTI":
			if depth == 0 && h.state == stateRunning {
				h.state = stateProcessingCommands
			}
			depth--
		}
	}
	h.displayPC()
	h.finishStep()
	return nil
}

func (h *Host) cmdStepCycle(c cmd.Selection) error {
	count := h.parseCount(c)

	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		h.stepCycle()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayCycle()
		}
	}
	h.finishStep()
	return nil
}

func (h *Host) cmdTraceOn(c cmd.Selection) error {
	h.closeTrace()
	h.settings.TraceEnabled = true
	h.println("Tracing to console.")
	return nil
}

func (h *Host) cmdTraceOff(c cmd.Selection) error {
	h.closeTrace()
	h.settings.TraceEnabled = false
	h.println("Tracing stopped.")
	return nil
}

func (h *Host) cmdTraceFile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	f, err := os.Create(c.Args[0])
	if err != nil {
		return pkgerrors.Wrap(err, "trace")
	}

	h.closeTrace()
	h.traceFile = f
	h.traceOut = bufio.NewWriter(f)
	h.settings.TraceEnabled = true
	h.printf("Tracing to '%s'.\n", filepath.Base(c.Args[0]))
	return nil
}

func (h *Host) closeTrace() {
	if h.traceFile == nil {
		return
	}
	if w, ok := h.traceOut.(*bufio.Writer); ok {
		w.Flush()
	}
	h.traceFile.Close()
	h.traceFile, h.traceOut = nil, nil
}

func (h *Host) traceWriter() io.Writer {
	if h.traceOut != nil {
		return h.traceOut
	}
	return h.output
}

// step executes one instruction, along with any interrupt sequence taken
// when it retires.
func (h *Host) step() {
	if h.interrupted.Swap(false) {
		h.state = stateInterrupted
		return
	}
	if h.settings.TraceEnabled && h.cpu.InstructionBoundary() {
		h.annotation = disasm.Annotate(h.console.Bus, h.cpu.Reg, h.cpu.Reg.PC)
	}
	if err := h.cpu.StepInstruction(); err != nil {
		h.halt(err)
	}
}

// stepCycle executes a single clock cycle.
func (h *Host) stepCycle() {
	if h.settings.TraceEnabled && h.cpu.InstructionBoundary() {
		h.annotation = disasm.Annotate(h.console.Bus, h.cpu.Reg, h.cpu.Reg.PC)
	}
	if err := h.cpu.Step(); err != nil {
		h.halt(err)
	}
}

func (h *Host) halt(err error) {
	var e *cpu.UnsupportedOpcodeError
	if errors.As(err, &e) {
		h.printf("CPU halted: %v.\n", e)
	} else {
		h.printf("CPU halted: %v.\n", err)
	}
	logger.Logf("cpu", "%v", err)
	h.state = stateHalted
}

func (h *Host) stepOverInstruction() {
	// JSR instructions need to be handled specially.
	inst := h.cpu.GetInstruction(h.cpu.Reg.PC)
	if inst == nil || inst.Name != "JSR" {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the JSR.
	// Either borrow an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := h.cpu.Reg.PC + bus.Address(inst.Length)
	b := h.debugger.GetBreakpoint(next)
	tmpBreakpointCreated := b == nil
	if tmpBreakpointCreated {
		b = h.debugger.AddBreakpoint(next)
	}
	disabled := b.Disabled
	b.Disabled = false
	h.stepOver, h.stepping = next, true

	// Run until interrupted.
	for h.state == stateRunning {
		h.step()
	}
	h.stepping = false
	b.Disabled = disabled

	// If we were interrupted by the step-over breakpoint, then continue as
	// normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

func (h *Host) displayStep(remaining int) {
	switch {
	case remaining == h.settings.MaxStepLines:
		h.println("...")
	case remaining < h.settings.MaxStepLines:
		h.displayPC()
	}
}

func (h *Host) displayCycle() {
	ct := h.lastCycle
	var pending []string
	for _, k := range h.cpu.Pending() {
		pending = append(pending, k.String())
	}
	h.printf("C=%-8d %-14s %s %s=$%02X  [%s]\n",
		ct.Cycle, ct.Kind, ct.Access, ct.Address, ct.Data, strings.Join(pending, " "))
}

func (h *Host) finishRun() {
	if h.state == stateInterrupted {
		h.println("Interrupted.")
		h.displayPC()
	}
	h.finishStep()
}

func (h *Host) finishStep() {
	if h.state == stateInterrupted {
		h.interrupted.Store(false)
	}
	h.state = stateProcessingCommands
	h.settings.NextDisasmAddr = uint16(h.cpu.Reg.PC)
	if w, ok := h.traceOut.(*bufio.Writer); ok {
		w.Flush()
	}
}

func (h *Host) parseCount(c cmd.Selection) int {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}
	return count
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
	if h.settings.EchoLog {
		logger.SetEcho(h.output)
	} else {
		logger.SetEcho(nil)
	}
	if !h.settings.TraceEnabled {
		h.closeTrace()
	}
}

func (h *Host) parseExpr(expr string) (bus.Address, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return bus.Address(v), nil
}

// parseAddrArg parses an address argument, where "$" continues from the
// next address (or PC if there is none) and "." is the current PC.
func (h *Host) parseAddrArg(arg string, next uint16) (bus.Address, error) {
	switch arg {
	case "$":
		if next == 0 {
			return h.cpu.Reg.PC, nil
		}
		return bus.Address(next), nil
	case ".":
		return h.cpu.Reg.PC, nil
	default:
		return h.parseExpr(arg)
	}
}

func (h *Host) disassemble(addr bus.Address, flags displayFlags) (str string, next bus.Address) {
	var line string
	line, next = disasm.Disassemble(h.console.Bus, addr)

	b := make([]byte, next-addr)
	for i := range b {
		b[i] = h.console.Bus.Peek(addr + bus.Address(i))
	}

	mark := ' '
	if bp := h.debugger.GetBreakpoint(addr); bp != nil && !bp.Disabled {
		mark = '*'
	}

	str = fmt.Sprintf("%04X-%c  %-8s    %-15s", uint16(addr), mark, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + h.cpu.Reg.String()
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%-12d", h.cpu.Cycles)
	}

	return str, next
}

func (h *Host) dumpMemory(addr0, bytes bus.Address) {
	if bytes == 0 {
		return
	}

	addr1 := addr0 + bytes - 1
	if addr1 < addr0 {
		addr1 = 0xffff
	}

	peek := h.console.Bus.Peek
	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := addr0, 6, 32; a <= addr1 && a >= addr0; a, c1, c2 = a+1, c1+3, c2+1 {
			m := peek(a)
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := (uint32(addr1) + 8) & 0xffff8
	if stop > 0x10000 {
		stop = 0x10000
	}

	a := bus.Address(start)
	for r := start; r < stop; r += 8 {
		addrToBuf(a, buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := peek(a)
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayHelpText(c cmd.Selection) {
	if e := lookupHelp(c); e != nil && e.usage != "" {
		h.printf("Syntax: %s\n", e.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayHelpEntry(e *helpEntry) {
	if e.usage != "" {
		h.printf("Syntax: %s\n\n", e.usage)
	}
	switch {
	case e.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, e.description))
	case e.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, e.brief))
	}
}

// groupShortcuts maps shortcuts that are not prefixes of their group's
// name.
var groupShortcuts = map[string]string{
	"db": "databreakpoint",
}

// displayGroup lists the commands of a group selected without a
// subcommand.
func (h *Host) displayGroup(name string) {
	name = strings.ToLower(name)
	if full, ok := groupShortcuts[name]; ok {
		name = full
	}
	g, err := helpGroups.FindValue(name)
	if err != nil {
		h.println("Command not found.")
		return
	}
	h.displayCommands(g)
}

func (h *Host) displayCommands(g *helpGroup) {
	title := g.name
	if g.brief != "" {
		title = g.brief
	}
	h.printf("%s:\n", title)
	for _, e := range g.entries {
		if e.brief != "" {
			h.printf("    %-15s  %s\n", e.name, e.brief)
		}
	}
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	s = strings.ToLower(s)
	r := &h.cpu.Reg

	switch s {
	case "a":
		return int64(r.A()), nil
	case "x":
		return int64(r.X()), nil
	case "y":
		return int64(r.Y()), nil
	case "p":
		return int64(r.P()), nil
	case "sp":
		return int64(r.SP) | 0x0100, nil
	case ".", "pc":
		return int64(r.PC), nil
	case "cycles":
		return int64(h.cpu.Cycles), nil
	case "nmi":
		return 0xfffa, nil
	case "reset":
		return 0xfffc, nil
	case "irq":
		return 0xfffe, nil
	}

	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) peek(addr uint16) byte {
	return h.console.Bus.Peek(bus.Address(addr))
}

func (h *Host) onInstruction(t cpu.InstructionTrace) {
	if !h.settings.TraceEnabled {
		return
	}
	fmt.Fprintln(h.traceWriter(), nestest.Format(t, h.annotation))
	if h.traceOut == nil {
		h.flush()
	}
}

func (h *Host) onCycle(ct cpu.CycleTrace) {
	h.lastCycle = ct
	if h.settings.TraceEnabled && h.settings.TraceCycles {
		fmt.Fprintf(h.traceWriter(), "    C=%-8d %-14s %s %s=$%02X\n",
			ct.Cycle, ct.Kind, ct.Access, ct.Address, ct.Data)
	}
}

// breakHandler forwards debugger notifications to the host.
type breakHandler struct {
	host *Host
}

func (h breakHandler) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	h.host.onBreakpoint(c, b)
}

func (h breakHandler) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.host.onDataBreakpoint(c, b)
}

func (h *Host) onBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	if h.stepping && b.Address == h.stepOver {
		h.state = stateStepOverBreakpoint
		return
	}
	h.state = stateBreakpoint
	h.printf("Breakpoint hit at %s.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address %s.\n", b.Address)

	h.state = stateBreakpoint

	if cpu.LastPC != cpu.Reg.PC {
		d, _ := h.disassemble(cpu.LastPC, displayAll)
		h.println(d)
	}

	h.displayPC()
}
