package disasm_test

import (
	"testing"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cpu"
	"github.com/beevik/nes6502/disasm"
)

func TestDisassemble(t *testing.T) {
	mem := bus.NewRAM(0, 0x10000)
	mem.Load(0xc000, []byte{
		0x4c, 0xf5, 0xc5, // JMP $C5F5
		0xa9, 0xff, // LDA #$FF
		0x0a,       // ASL A
		0xea,       // NOP
		0xb0, 0xfe, // BCS $C008
		0xb1, 0x33, // LDA ($33),Y
		0x02, // unsupported
	})

	tests := []struct {
		line string
		next bus.Address
	}{
		{"JMP $C5F5", 0xc003},
		{"LDA #$FF", 0xc005},
		{"ASL A", 0xc006},
		{"NOP", 0xc007},
		{"BCS $C007", 0xc009},
		{"LDA ($33),Y", 0xc00b},
		{".DB $02", 0xc00c},
	}

	addr := bus.Address(0xc000)
	for _, tt := range tests {
		line, next := disasm.Disassemble(mem, addr)
		if line != tt.line || next != tt.next {
			t.Errorf("disassembly at %s incorrect. exp: %q %s, got: %q %s", addr, tt.line, tt.next, line, next)
		}
		addr = next
	}
}

func TestAnnotate(t *testing.T) {
	mem := bus.NewRAM(0, 0x10000)
	var r cpu.Registers
	r.Init()
	r.SetX(0x02)
	r.SetY(0x34)

	mem.Write(0x0033, 0x00)
	mem.Write(0x0034, 0x04)
	mem.Write(0x0434, 0x7f)
	mem.Write(0x0082, 0x00)
	mem.Write(0x0083, 0x02)
	mem.Write(0x0200, 0x5a)
	mem.Write(0x0678, 0x11)
	mem.Write(0x02ff, 0x7e)

	tests := []struct {
		code []byte
		exp  string
	}{
		{[]byte{0xad, 0x78, 0x06}, "LDA $0678 = 11"},
		{[]byte{0xb1, 0x33}, "LDA ($33),Y = 0400 @ 0434 = 7F"},
		{[]byte{0xa1, 0x80}, "LDA ($80,X) @ 82 = 0200 = 5A"},
		{[]byte{0xb5, 0x31}, "LDA $31,X @ 33 = 00"},
		{[]byte{0xbd, 0x76, 0x06}, "LDA $0676,X @ 0678 = 11"},
		{[]byte{0x6c, 0xff, 0x02}, "JMP ($02FF) = 5A7E"},
		{[]byte{0x20, 0x2d, 0xc7}, "JSR $C72D"},
		{[]byte{0x4a}, "LSR A"},
		{[]byte{0x04, 0x33}, "NOP $33 = 00"},
	}

	for _, tt := range tests {
		mem.Load(0xc000, tt.code)
		if got := disasm.Annotate(mem, r, 0xc000); got != tt.exp {
			t.Errorf("annotation incorrect. exp: %q, got: %q", tt.exp, got)
		}
	}
}
