package nestest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/nes6502/cart"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/nes6502/disasm"
	"github.com/beevik/nes6502/nes"
	"github.com/beevik/nes6502/nestest"
)

var sampleLog = []string{
	"C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD PPU:  0, 21 CYC:7",
	"C5F5  A2 00     LDX #$00                        A:00 X:00 Y:00 P:24 SP:FD PPU:  0, 30 CYC:10",
	"C5F7  86 00     STX $00 = 00                    A:00 X:00 Y:00 P:26 SP:FD PPU:  0, 36 CYC:12",
	"C5F9  86 10     STX $10 = 00                    A:00 X:00 Y:00 P:26 SP:FD PPU:  0, 45 CYC:15",
	"C5FB  86 11     STX $11 = 00                    A:00 X:00 Y:00 P:26 SP:FD PPU:  0, 54 CYC:18",
	"C5FD  20 2D C7  JSR $C72D                       A:00 X:00 Y:00 P:26 SP:FD PPU:  0, 63 CYC:21",
	"C72D  EA        NOP                             A:00 X:00 Y:00 P:26 SP:FB PPU:  0, 81 CYC:27",
}

func stripPPU(line string) string {
	i := strings.Index(line, " PPU:")
	j := strings.Index(line, " CYC:")
	if i < 0 || j < i {
		return line
	}
	return line[:i] + line[j:]
}

func TestParseLine(t *testing.T) {
	e, err := nestest.ParseLine(sampleLog[0])
	if err != nil {
		t.Fatal(err)
	}
	if e.PC != 0xc000 || len(e.Bytes) != 3 || e.Bytes[2] != 0xc5 || e.Mnemonic != "JMP" ||
		e.Operand != "$C5F5" || e.P != 0x24 || e.SP != 0xfd || e.Cycle != 7 || e.Unofficial {
		t.Errorf("unexpected entry %+v", e)
	}

	e, err = nestest.ParseLine("E8F3  E3 45    *ISB ($45,X) @ 47 = 0647 = 00    A:B2 X:02 Y:C1 P:65 SP:FB PPU: 85,  8 CYC:14574")
	if err != nil {
		t.Fatal(err)
	}
	if !e.Unofficial || e.Mnemonic != "ISB" || e.Operand != "($45,X) @ 47 = 0647 = 00" ||
		e.A != 0xb2 || e.X != 0x02 || e.Y != 0xc1 || e.P != 0x65 || e.Cycle != 14574 {
		t.Errorf("unexpected entry %+v", e)
	}

	// The PPU column is optional.
	e, err = nestest.ParseLine(stripPPU(sampleLog[6]))
	if err != nil {
		t.Fatal(err)
	}
	if e.SP != 0xfb || e.Cycle != 27 || e.Operand != "" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestParseLineErrors(t *testing.T) {
	bad := []string{
		"",
		"C000  4C",
		"ZZZZ  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD CYC:7",
		"C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 CYC:7",
		"C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD CYC:x",
	}
	for _, line := range bad {
		if _, err := nestest.ParseLine(line); err == nil {
			t.Errorf("expected error parsing %q", line)
		}
	}
}

func TestReadLog(t *testing.T) {
	entries, err := nestest.ReadLog(strings.NewReader(strings.Join(sampleLog, "\r\n") + "\r\n\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(sampleLog) {
		t.Fatalf("expected %d entries, got %d", len(sampleLog), len(entries))
	}
	if entries[3].Line != 4 || entries[3].PC != 0xc5f9 {
		t.Errorf("unexpected entry %+v", entries[3])
	}

	_, err = nestest.ReadLog(strings.NewReader(sampleLog[0] + "\nbroken\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error on line 2, got %v", err)
	}
}

// sampleConsole builds a console holding the code that produces the
// first lines of the reference log.
func sampleConsole(t *testing.T, opts ...nes.Option) *nes.Console {
	t.Helper()
	prg := make([]byte, 0x4000)
	copy(prg[0x0000:], []byte{0x4c, 0xf5, 0xc5})
	copy(prg[0x05f5:], []byte{0xa2, 0x00, 0x86, 0x00, 0x86, 0x10, 0x86, 0x11, 0x20, 0x2d, 0xc7})
	copy(prg[0x072d:], []byte{0xea})

	n, err := nes.New(&cart.Cartridge{PRG: prg, CHR: make([]byte, 0x2000)}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Reset(); err != nil {
		t.Fatal(err)
	}
	n.CPU.SetPC(nes.NestestEntry)
	return n
}

func TestFormatAndCompare(t *testing.T) {
	var traces []cpu.InstructionTrace
	n := sampleConsole(t, nes.WithCPUOptions(cpu.WithTracer(func(tr cpu.InstructionTrace) {
		traces = append(traces, tr)
	})))

	for i, line := range sampleLog {
		annotation := disasm.Annotate(n.Bus, n.CPU.Reg, n.CPU.Reg.PC)
		if err := n.CPU.StepInstruction(); err != nil {
			t.Fatal(err)
		}
		if len(traces) != i+1 {
			t.Fatalf("expected %d traces, got %d", i+1, len(traces))
		}

		if got, exp := nestest.Format(traces[i], annotation), stripPPU(line); got != exp {
			t.Errorf("line %d incorrect.\nexp: %q\ngot: %q", i+1, exp, got)
		}

		e, err := nestest.ParseLine(line)
		if err != nil {
			t.Fatal(err)
		}
		if err := nestest.Compare(e, traces[i]); err != nil {
			t.Error(err)
		}
	}
}

func TestCompareMismatch(t *testing.T) {
	e, err := nestest.ParseLine(sampleLog[1])
	if err != nil {
		t.Fatal(err)
	}
	e.Line = 2

	var tr cpu.InstructionTrace
	tr.PC = 0xc5f5
	tr.Bytes = []byte{0xa2, 0x00}
	tr.Mnemonic = "LDX"
	tr.Regs.Init()
	tr.Regs.SP = 0xfd
	tr.Cycle = 11

	err = nestest.Compare(e, tr)
	var m *nestest.MismatchError
	if !errors.As(err, &m) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if m.Field != "CYC" || m.Expected != "10" || m.Got != "11" || m.Line != 2 {
		t.Errorf("unexpected mismatch %+v", m)
	}

	tr.Cycle = 10
	if err := nestest.Compare(e, tr); err != nil {
		t.Errorf("unexpected mismatch: %v", err)
	}
}

// TestOpeningLog replays testdata/opening.log, a nestest-style run that
// covers branches, stack and flag handling, every addressing mode with its
// page-zero and page-crossing wraparound, read-modify-write and the
// unofficial opcodes. The cartridge is rebuilt from the instruction bytes
// recorded in the log itself.
func TestOpeningLog(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "opening.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n")), "\n")

	entries, err := nestest.ReadLog(strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(lines) || len(entries) < 300 {
		t.Fatalf("expected %d log entries, got %d", len(lines), len(entries))
	}

	prg := make([]byte, 0x4000)
	for _, e := range entries {
		copy(prg[int(e.PC-0xc000):], e.Bytes)
	}

	var last cpu.InstructionTrace
	n, err := nes.New(&cart.Cartridge{PRG: prg, CHR: make([]byte, 0x2000)},
		nes.WithCPUOptions(cpu.WithTracer(func(tr cpu.InstructionTrace) {
			last = tr
		})))
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Reset(); err != nil {
		t.Fatal(err)
	}
	n.CPU.SetPC(nes.NestestEntry)

	for i, e := range entries {
		annotation := disasm.Annotate(n.Bus, n.CPU.Reg, n.CPU.Reg.PC)
		if err := n.CPU.StepInstruction(); err != nil {
			t.Fatalf("line %d: %v", e.Line, err)
		}
		if err := nestest.Compare(e, last); err != nil {
			t.Fatalf("%v\n%s", err, nestest.Format(last, annotation))
		}
		if got := nestest.Format(last, annotation); got != lines[i] {
			t.Fatalf("line %d incorrect.\nexp: %q\ngot: %q", e.Line, lines[i], got)
		}
	}
}

// TestNestest runs the nestest ROM in automated mode against the reference
// log. The ROM and log are not distributed with the module; place them in
// testdata/ to run it.
func TestNestest(t *testing.T) {
	romPath := filepath.Join("testdata", "nestest.nes")
	logPath := filepath.Join("testdata", "nestest.log")
	if _, err := os.Stat(romPath); err != nil {
		t.Skip("testdata/nestest.nes not present")
	}
	f, err := os.Open(logPath)
	if err != nil {
		t.Skip("testdata/nestest.log not present")
	}
	defer f.Close()

	entries, err := nestest.ReadLog(f)
	if err != nil {
		t.Fatal(err)
	}

	var last cpu.InstructionTrace
	n, err := nes.LoadNestest(romPath, nes.WithCPUOptions(cpu.WithTracer(func(tr cpu.InstructionTrace) {
		last = tr
	})))
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		annotation := disasm.Annotate(n.Bus, n.CPU.Reg, n.CPU.Reg.PC)
		if err := n.CPU.StepInstruction(); err != nil {
			t.Fatalf("line %d: %v", e.Line, err)
		}
		if err := nestest.Compare(e, last); err != nil {
			t.Fatalf("%v\n%s", err, nestest.Format(last, annotation))
		}
	}

	if official, unofficial := n.NestestResult(); official != 0 || unofficial != 0 {
		t.Errorf("nestest reported failures: $02=%02X $03=%02X", official, unofficial)
	}
}
