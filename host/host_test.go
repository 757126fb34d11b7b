package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cart"
	"github.com/beevik/nes6502/cpu"
)

// A short program placed in sandbox RAM:
//
//	8000  JSR $8010
//	8003  STA $0200
//	8006  JMP $8006
//	8010  LDA #$07
//	8012  INX
//	8013  RTS
const program = "memory set $8000 $20 $10 $80 $8d $00 $02 $4c $06 $80\n" +
	"memory set $8010 $a9 $07 $e8 $60\n" +
	"register pc $8000\n"

func runHost(t *testing.T, h *Host, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, false)
	return out.String()
}

func expectOutput(t *testing.T, out, exp string) {
	t.Helper()
	if !strings.Contains(out, exp) {
		t.Errorf("output incorrect. exp: %q, got:\n%s", exp, out)
	}
}

func expectHostPC(t *testing.T, h *Host, pc bus.Address) {
	t.Helper()
	if h.cpu.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: %s, got: %s", pc, h.cpu.Reg.PC)
	}
}

func TestMemorySetAndDump(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"memory set $0200 $41 $42 $43",
		"memory dump $0200 3",
	)
	expectOutput(t, out, "0200- 41 42 43")
	expectOutput(t, out, "ABC")

	if v := h.console.Bus.Peek(0x0a00); v != 0x41 {
		t.Errorf("RAM mirror incorrect. exp: $41, got: $%02X", v)
	}
}

func TestMemoryCopy(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"memory set $0300 1 2 3 4",
		"memory copy $0301 $0300 $0303",
	)
	expectOutput(t, out, "Copied 4 bytes from $0300 to $0301.")

	exp := []byte{1, 1, 2, 3, 4}
	for i, v := range exp {
		if got := h.console.Bus.Peek(0x0300 + bus.Address(i)); got != v {
			t.Errorf("byte %d incorrect. exp: %d, got: %d", i, v, got)
		}
	}
}

func TestBreakpointCommands(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"breakpoint add $8003",
		"breakpoint disable $8003",
		"breakpoint list",
		"breakpoint enable $8003",
		"breakpoint remove $8003",
		"breakpoint remove $8003",
	)
	expectOutput(t, out, "Breakpoint added at $8003.")
	expectOutput(t, out, "Breakpoint at $8003 disabled.")
	expectOutput(t, out, "$8003 false")
	expectOutput(t, out, "Breakpoint at $8003 enabled.")
	expectOutput(t, out, "Breakpoint at $8003 removed.")
	expectOutput(t, out, "No breakpoint was set on $8003.")
}

func TestRunToBreakpoint(t *testing.T) {
	h := New()
	out := runHost(t, h, program,
		"breakpoint add $8006",
		"run",
	)
	expectOutput(t, out, "Running from $8000.")
	expectOutput(t, out, "Breakpoint hit at $8006.")
	expectHostPC(t, h, 0x8006)

	if v := h.console.Bus.Peek(0x0200); v != 0x07 {
		t.Errorf("store incorrect. exp: $07, got: $%02X", v)
	}
	if b := h.debugger.GetBreakpoint(0x8006); b.Hits != 1 {
		t.Errorf("hits incorrect. exp: 1, got: %d", b.Hits)
	}
}

func TestDataBreakpoint(t *testing.T) {
	h := New()
	out := runHost(t, h, program,
		"databreakpoint add $0200 $08",
		"databreakpoint add $0201",
		"databreakpoint remove $0201",
		"databreakpoint list",
		"step in 3",
		"databreakpoint add $0200 $07",
		"register pc $8000",
		"run",
	)
	expectOutput(t, out, "Conditional data breakpoint added at $0200 for value $08.")
	expectOutput(t, out, "Data breakpoint at $0201 removed.")
	expectOutput(t, out, "$0200 true     $08")
	expectOutput(t, out, "Data breakpoint hit on address $0200.")
	expectHostPC(t, h, 0x8006)
}

func TestStepOver(t *testing.T) {
	h := New()
	runHost(t, h, program, "step over")
	expectHostPC(t, h, 0x8003)

	if h.cpu.Reg.X() != 1 {
		t.Errorf("X incorrect. exp: 1, got: %d", h.cpu.Reg.X())
	}
	if h.debugger.GetBreakpoint(0x8003) != nil {
		t.Error("temporary breakpoint not removed")
	}
}

func TestStepOverKeepsBreakpoint(t *testing.T) {
	h := New()
	runHost(t, h, program, "breakpoint add $8003", "breakpoint disable $8003", "step over")
	expectHostPC(t, h, 0x8003)

	b := h.debugger.GetBreakpoint(0x8003)
	if b == nil || !b.Disabled {
		t.Error("existing breakpoint not restored")
	}
}

func TestStepInAndOut(t *testing.T) {
	h := New()
	runHost(t, h, program, "step in")
	expectHostPC(t, h, 0x8010)

	runHost(t, h, "step out")
	expectHostPC(t, h, 0x8003)
	if h.cpu.Reg.A() != 0x07 {
		t.Errorf("A incorrect. exp: $07, got: $%02X", h.cpu.Reg.A())
	}
}

func TestStepCycle(t *testing.T) {
	h := New()
	out := runHost(t, h, program, "step cycle")
	expectOutput(t, out, "decode")
	expectOutput(t, out, "R $8000=$20")

	if h.cpu.Cycles != 1 {
		t.Errorf("Cycles incorrect. exp: 1, got: %d", h.cpu.Cycles)
	}
	if h.cpu.InstructionBoundary() {
		t.Error("expected an instruction in flight")
	}

	runHost(t, h, "step cycle 5")
	if h.cpu.Cycles != 6 || !h.cpu.InstructionBoundary() {
		t.Errorf("JSR incomplete after %d cycles", h.cpu.Cycles)
	}
	expectHostPC(t, h, 0x8010)
}

func TestUnsupportedOpcodeHalts(t *testing.T) {
	h := New()
	out := runHost(t, h, "memory set $8000 $ea $02", "run $8000")
	expectOutput(t, out, "CPU halted: unsupported opcode $02 at $8001.")
	expectHostPC(t, h, 0x8001)
}

func TestRegisterCommand(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"register a $80",
		"register x 3",
		"register sp $fd",
		"register pc $c000",
		"register c 1",
		"register v 1",
		"register q 1",
	)
	expectOutput(t, out, "Register A set to $80.")
	expectOutput(t, out, "Register PC set to $C000.")
	expectOutput(t, out, "Flag Carry set to true.")
	expectOutput(t, out, "Flag Overflow set to true.")
	expectOutput(t, out, "register 'q' not found")

	r := h.cpu.Reg
	if r.A() != 0x80 || r.X() != 3 || r.SP != 0xfd || r.PC != 0xc000 {
		t.Errorf("registers incorrect: %s PC:%s", r, r.PC)
	}
	if !r.Flag(cpu.Carry) || !r.Flag(cpu.Overflow) || r.Flag(cpu.Negative) {
		t.Errorf("flags incorrect: %s", r.P())
	}
}

func TestEvaluate(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"memory set $10 $34 $12",
		"register x 2",
		"evaluate 2+3",
		"evaluate @@$10 + x",
		"evaluate 1+",
	)
	expectOutput(t, out, "$0005 (5)")
	expectOutput(t, out, "$1236 (4662)")
	expectOutput(t, out, "expression syntax error")
}

func TestSettings(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"set mem 32",
		"set hex true",
		"set nextd 1000",
		"set bogus 1",
		"set",
	)
	expectOutput(t, out, "MemDumpBytes updated.")
	expectOutput(t, out, "HexMode updated.")
	expectOutput(t, out, "setting 'bogus' not found")
	expectOutput(t, out, "NextDisasmAddr   $1000")

	if h.settings.MemDumpBytes != 32 || !h.settings.HexMode || !h.exprParser.hexMode {
		t.Error("settings not applied")
	}
}

func TestDisassemble(t *testing.T) {
	h := New()
	out := runHost(t, h, program, "disassemble $8000 3")
	expectOutput(t, out, "8000-   20 10 80    JSR $8010")
	expectOutput(t, out, "8003-   8D 00 02    STA $0200")
	expectOutput(t, out, "8006-   4C 06 80    JMP $8006")

	if h.settings.NextDisasmAddr != 0x8009 {
		t.Errorf("next address incorrect. exp: $8009, got: $%04X", h.settings.NextDisasmAddr)
	}
}

func TestTrace(t *testing.T) {
	h := New()
	out := runHost(t, h, program, "trace on", "step in 2")
	expectOutput(t, out, "8000  20 10 80  JSR $8010")
	expectOutput(t, out, "A:00 X:00 Y:00 P:24 SP:00 CYC:0")
	expectOutput(t, out, "8010  A9 07     LDA #$07")
	expectOutput(t, out, "CYC:6")
}

func TestTraceFile(t *testing.T) {
	h := New()
	filename := filepath.Join(t.TempDir(), "trace.log")
	runHost(t, h, program, "trace file "+filename, "step in", "trace off")

	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "8000  20 10 80  JSR $8010") {
		t.Errorf("trace file incorrect: %q", b)
	}
}

func TestInterrupts(t *testing.T) {
	h := New()
	out := runHost(t, h,
		"memory set $fffa $00 $90",
		"memory set $fffe $00 $a0",
		"memory set $8000 $ea $ea",
		"register pc $8000",
		"interrupt nmi",
		"step in",
	)
	expectOutput(t, out, "NMI signaled.")
	expectHostPC(t, h, 0x9000)

	out = runHost(t, h,
		"register pc $8000",
		"register i 0",
		"interrupt irq on",
		"step in",
	)
	expectOutput(t, out, "IRQ line active.")
	expectHostPC(t, h, 0xa000)
}

func TestReset(t *testing.T) {
	h := New()
	out := runHost(t, h, "memory set $fffc $34 $12", "reset", "log 1")
	expectHostPC(t, h, 0x1234)
	if h.cpu.Reg.SP != 0xfd {
		t.Errorf("SP incorrect. exp: $FD, got: $%02X", h.cpu.Reg.SP)
	}
	expectOutput(t, out, "reset to $1234")
}

func TestExecute(t *testing.T) {
	h := New()
	filename := filepath.Join(t.TempDir(), "script.txt")
	script := "# comment\nmemory set $0200 $aa\nquit\nmemory set $0201 $bb\n"
	if err := os.WriteFile(filename, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	runHost(t, h, "execute "+filename, "memory set $0202 $cc")
	if h.console.Bus.Peek(0x0200) != 0xaa {
		t.Error("script command not executed")
	}
	if h.console.Bus.Peek(0x0201) != 0 || h.console.Bus.Peek(0x0202) != 0 {
		t.Error("commands after quit were executed")
	}
}

func TestScript(t *testing.T) {
	h := New()
	filename := filepath.Join(t.TempDir(), "test.lua")
	script := `
poke(0x8000, 0xa9)
poke(0x8001, 0x11)
setpc(0x8000)
local pc = step()
local r = registers()
print("A", r.a, "PC", pc)
poke(0x0300, cycles())
log("done")
`
	if err := os.WriteFile(filename, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runHost(t, h, "script "+filename)
	expectOutput(t, out, "A\t17\tPC\t32770")
	if v := h.console.Bus.Peek(0x0300); v != 2 {
		t.Errorf("cycles incorrect. exp: 2, got: %d", v)
	}

	out = runHost(t, h, "script "+filepath.Join(t.TempDir(), "missing.lua"))
	expectOutput(t, out, "ERROR: script missing.lua")
}

func TestScriptHalt(t *testing.T) {
	h := New()
	err := h.runScriptString("poke(0x8000, 0x02) setpc(0x8000) step()")
	if err == nil || !strings.Contains(err.Error(), "cpu halted at $8000") {
		t.Errorf("expected halt error, got %v", err)
	}
}

func TestMemviz(t *testing.T) {
	h := New()
	filename := filepath.Join(t.TempDir(), "cpu.dot")
	runHost(t, h, program, "breakpoint add $8003", "step cycle 2", "memviz "+filename)

	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "digraph") {
		t.Errorf("memviz output incorrect: %q", b)
	}

	s := h.snapshot()
	if s.Instruction == nil || s.Instruction.Name != "JSR" || len(s.Pending) != 4 {
		t.Errorf("snapshot incorrect: %+v", s)
	}
}

func TestLoadCartridge(t *testing.T) {
	c := &cart.Cartridge{
		PRG: make([]byte, 0x4000),
		CHR: make([]byte, 0x2000),
	}
	c.PRG[0x0000] = 0xea  // $8000 NOP
	c.PRG[0x3ffc] = 0x00  // reset vector low
	c.PRG[0x3ffd] = 0x80  // reset vector high

	filename := filepath.Join(t.TempDir(), "test.nes")
	if err := os.WriteFile(filename, c.Encode(), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New()
	out := runHost(t, h, "breakpoint add $8001", "load "+filename)
	expectOutput(t, out, "Loaded 'test.nes' (mapper 0)")
	expectHostPC(t, h, 0x8000)
	if h.debugger.GetBreakpoint(0x8001) == nil {
		t.Error("breakpoints not carried over")
	}

	out = runHost(t, h, "load "+filepath.Join(t.TempDir(), "missing.nes"))
	expectOutput(t, out, "ERROR:")
}

func TestHelp(t *testing.T) {
	h := New()
	out := runHost(t, h, "help", "help breakpoint add", "help step")
	expectOutput(t, out, "Breakpoint commands")
	expectOutput(t, out, "Syntax: breakpoint add <address>")
	expectOutput(t, out, "Step into next instruction")
}
