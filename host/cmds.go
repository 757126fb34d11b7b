// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"reflect"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/prefixtree/v2"
)

var cmds *cmd.Tree

// A helpEntry holds the help text of a command or a command group.
type helpEntry struct {
	name        string
	brief       string
	description string
	usage       string
}

// A helpGroup lists the commands of one subtree.
type helpGroup struct {
	name    string
	brief   string
	entries []*helpEntry
}

var (
	helpByHandler = make(map[uintptr]*helpEntry)
	helpGroups    = prefixtree.New[*helpGroup]()
	helpRoot      = &helpGroup{name: "nes6502"}
)

// describe records the help text of a command added to the group with
// the given name ("" for the root) and returns the descriptor unchanged.
func describe(group string, d cmd.CommandDescriptor) cmd.CommandDescriptor {
	e := &helpEntry{
		name:        strings.TrimSpace(group + " " + d.Name),
		brief:       d.Brief,
		description: d.Description,
		usage:       d.Usage,
	}
	helpByHandler[reflect.ValueOf(d.Data).Pointer()] = e

	g := helpRoot
	if group != "" {
		g, _ = helpGroups.FindValue(group)
	}
	g.entries = append(g.entries, &helpEntry{name: d.Name, brief: d.Brief})
	return d
}

// subtree records a command group and returns its descriptor unchanged.
func subtree(d cmd.TreeDescriptor) cmd.TreeDescriptor {
	helpGroups.Add(d.Name, &helpGroup{name: d.Name, brief: d.Brief})
	helpRoot.entries = append(helpRoot.entries, &helpEntry{name: d.Name, brief: d.Brief})
	return d
}

func lookupHelp(c cmd.Selection) *helpEntry {
	if c.Command == nil || c.Command.Data == nil {
		return nil
	}
	v := reflect.ValueOf(c.Command.Data)
	if v.Kind() != reflect.Func {
		return nil
	}
	return helpByHandler[v.Pointer()]
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "nes6502"})
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        (*Host).cmdHelp,
	}))

	// Breakpoint commands
	bp := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"}))
	bp.AddCommand(describe("breakpoint", cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
		Data:        (*Host).cmdBreakpointList,
	}))
	bp.AddCommand(describe("breakpoint", cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled and stops the CPU before" +
			" the opcode at the address is fetched.",
		Usage: "breakpoint add <address>",
		Data:  (*Host).cmdBreakpointAdd,
	}))
	bp.AddCommand(describe("breakpoint", cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        (*Host).cmdBreakpointRemove,
	}))
	bp.AddCommand(describe("breakpoint", cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
		Data:        (*Host).cmdBreakpointEnable,
	}))
	bp.AddCommand(describe("breakpoint", cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		Usage: "breakpoint disable <address>",
		Data:  (*Host).cmdBreakpointDisable,
	}))

	// Data breakpoint commands
	db := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "databreakpoint", Brief: "Data breakpoint commands"}))
	db.AddCommand(describe("databreakpoint", cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
		Data:        (*Host).cmdDataBreakpointList,
	}))
	db.AddCommand(describe("databreakpoint", cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU drives a write cycle to this" +
			" address, including the dummy write of a read-modify-write" +
			" instruction, the breakpoint stops the CPU. Optionally, a byte" +
			" value may be specified, and the CPU will stop only" +
			" when this value is stored. The data breakpoint starts" +
			" enabled.",
		Usage: "databreakpoint add <address> [<value>]",
		Data:  (*Host).cmdDataBreakpointAdd,
	}))
	db.AddCommand(describe("databreakpoint", cmd.CommandDescriptor{
		Name:  "remove",
		Brief: "Remove a data breakpoint",
		Description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		Usage: "databreakpoint remove <address>",
		Data:  (*Host).cmdDataBreakpointRemove,
	}))
	db.AddCommand(describe("databreakpoint", cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a data breakpoint",
		Description: "Enable a previously added data breakpoint.",
		Usage:       "databreakpoint enable <address>",
		Data:        (*Host).cmdDataBreakpointEnable,
	}))
	db.AddCommand(describe("databreakpoint", cmd.CommandDescriptor{
		Name:        "disable",
		Brief:       "Disable a data breakpoint",
		Description: "Disable a previously added data breakpoint.",
		Usage:       "databreakpoint disable <address>",
		Data:        (*Host).cmdDataBreakpointDisable,
	}))

	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Host).cmdDisassemble,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "evaluate",
		Brief: "Evaluate an expression",
		Description: "Evaluate a mathematical expression. Registers may be" +
			" named, @addr reads a byte of memory and @@addr reads a word.",
		Usage: "evaluate <expression>",
		Data:  (*Host).cmdEvaluate,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "execute",
		Brief: "Execute a script file",
		Description: "Load a script file from disk and execute the" +
			" monitor commands it contains.",
		Usage: "execute <filename>",
		Data:  (*Host).cmdExecute,
	}))

	// Interrupt commands
	ir := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "interrupt", Brief: "Interrupt commands"}))
	ir.AddCommand(describe("interrupt", cmd.CommandDescriptor{
		Name:  "nmi",
		Brief: "Signal a non-maskable interrupt",
		Description: "Signal a non-maskable interrupt. The CPU takes it" +
			" when the current instruction retires.",
		Usage: "interrupt nmi",
		Data:  (*Host).cmdInterruptNMI,
	}))
	ir.AddCommand(describe("interrupt", cmd.CommandDescriptor{
		Name:  "irq",
		Brief: "Drive the IRQ line",
		Description: "Set the level of the IRQ line. While the line is" +
			" active and interrupts are enabled, the CPU takes an interrupt" +
			" at every instruction boundary. With no argument the current" +
			" level is displayed.",
		Usage: "interrupt irq [<on|off>]",
		Data:  (*Host).cmdInterruptIRQ,
	}))

	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a cartridge image",
		Description: "Load an iNES cartridge image and rebuild the console" +
			" around it. Breakpoints are kept. The CPU is reset unless an" +
			" entry address is given, in which case execution starts there.",
		Usage: "load <filename> [<address>]",
		Data:  (*Host).cmdLoad,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "log",
		Brief: "Display the log",
		Description: "Display the most recent log entries. The number of" +
			" entries may be specified as an option.",
		Usage: "log [<count>]",
		Data:  (*Host).cmdLog,
	}))

	// Memory commands
	me := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"}))
	me.AddCommand(describe("memory", cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off." +
			" Memory is inspected without side effects on devices.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Host).cmdMemoryDump,
	}))
	me.AddCommand(describe("memory", cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values. You may use an expression for each" +
			" byte value.",
		Usage: "memory set <address> <byte> [<byte> ...]",
		Data:  (*Host).cmdMemorySet,
	}))
	me.AddCommand(describe("memory", cmd.CommandDescriptor{
		Name:  "copy",
		Brief: "Copy memory",
		Description: "Copy memory from one range of addresses to another. You" +
			" must specify the destination address, the first byte of the source" +
			" address, and the last byte of the source address.",
		Usage: "memory copy <dst addr> <src addr begin> <src addr end>",
		Data:  (*Host).cmdMemoryCopy,
	}))

	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "memviz",
		Brief: "Write a graph of the CPU state",
		Description: "Write a Graphviz description of the CPU registers," +
			" the instruction in flight and its pending micro-ops to a file.",
		Usage: "memviz <filename>",
		Data:  (*Host).cmdMemviz,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        (*Host).cmdQuit,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "register",
		Brief: "View or change register values",
		Description: "When used without arguments, this command displays the current" +
			" contents of the CPU registers.  When used with arguments, this" +
			" command changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include A, X, Y, PC and SP. Allowed status" +
			" flag names include N (Negative), Z (Zero), C (Carry), I (InterruptDisable)," +
			" D (Decimal) and V (Overflow).",
		Usage: "register [<name> <value>]",
		Data:  (*Host).cmdRegister,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "reset",
		Brief: "Reset the CPU",
		Description: "Run the 7-cycle reset sequence. The CPU resumes at" +
			" the address held in the reset vector.",
		Usage: "reset",
		Data:  (*Host).cmdReset,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the CPU",
		Description: "Run the CPU until a breakpoint is hit, an unsupported" +
			" opcode is fetched or the user types Ctrl-C. Execution starts" +
			" at the optional address.",
		Usage: "run [<address>]",
		Data:  (*Host).cmdRun,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "script",
		Brief: "Run a Lua script",
		Description: "Run a Lua script against the console. The script" +
			" may call peek(addr), poke(addr, value), step(), stepcycle()," +
			" cycles(), registers(), setpc(addr), reset() and log(text).",
		Usage: "script <filename>",
		Data:  (*Host).cmdScript,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		Usage: "set [<var> <value>]",
		Data:  (*Host).cmdSet,
	}))
	root.AddCommand(describe("", cmd.CommandDescriptor{
		Name:        "stats",
		Brief:       "Launch the statistics server",
		Description: "Launch the runtime statistics web server.",
		Usage:       "stats",
		Data:        (*Host).cmdStats,
	}))

	// Step commands
	st := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "step", Brief: "Step the debugger"}))
	st.AddCommand(describe("step", cmd.CommandDescriptor{
		Name:  "in",
		Brief: "Step into next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step in [<count>]",
		Data:  (*Host).cmdStepIn,
	}))
	st.AddCommand(describe("step", cmd.CommandDescriptor{
		Name:  "over",
		Brief: "Step over next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step over the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step over [<count>]",
		Data:  (*Host).cmdStepOver,
	}))
	st.AddCommand(describe("step", cmd.CommandDescriptor{
		Name:  "out",
		Brief: "Step out of the current subroutine",
		Description: "Step the CPU until it executes an RTS or RTI" +
			" instruction. This has the effect of stepping until the" +
			" currently running subroutine has returned.",
		Usage: "step out",
		Data:  (*Host).cmdStepOut,
	}))
	st.AddCommand(describe("step", cmd.CommandDescriptor{
		Name:  "cycle",
		Brief: "Step a single clock cycle",
		Description: "Step the CPU by one clock cycle and display the" +
			" bus access it made along with the micro-ops still queued." +
			" The number of cycles may be specified as an option.",
		Usage: "step cycle [<count>]",
		Data:  (*Host).cmdStepCycle,
	}))

	// Trace commands
	tr := root.AddSubtree(subtree(cmd.TreeDescriptor{Name: "trace", Brief: "Instruction trace commands"}))
	tr.AddCommand(describe("trace", cmd.CommandDescriptor{
		Name:  "on",
		Brief: "Start tracing",
		Description: "Print a conformance log line for every instruction" +
			" the CPU retires.",
		Usage: "trace on",
		Data:  (*Host).cmdTraceOn,
	}))
	tr.AddCommand(describe("trace", cmd.CommandDescriptor{
		Name:        "off",
		Brief:       "Stop tracing",
		Description: "Stop tracing and close any trace file.",
		Usage:       "trace off",
		Data:        (*Host).cmdTraceOff,
	}))
	tr.AddCommand(describe("trace", cmd.CommandDescriptor{
		Name:  "file",
		Brief: "Trace to a file",
		Description: "Write conformance log lines for every retired" +
			" instruction to a file instead of the console.",
		Usage: "trace file <filename>",
		Data:  (*Host).cmdTraceFile,
	}))

	// Add command shortcuts.
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("db", "databreakpoint")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("mc", "memory copy")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "register")
	root.AddShortcut("s", "step over")
	root.AddShortcut("si", "step in")
	root.AddShortcut("so", "step out")
	root.AddShortcut("sc", "step cycle")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "register")

	cmds = root
}
