package cpu

import "testing"

func TestTemplateCycles(t *testing.T) {
	set := GetInstructionSet()
	n := 0
	for opcode := 0; opcode < 256; opcode++ {
		inst := set.Lookup(byte(opcode))
		if inst == nil {
			continue
		}
		n++
		base, extra := templateCycles(inst.ops)
		if base != int(inst.Cycles) || extra != int(inst.BPCycles) {
			t.Errorf("%s %s ($%02X): template takes %d+%d cycles, table says %d+%d",
				inst.Name, inst.Mode, inst.Opcode, base, extra, inst.Cycles, inst.BPCycles)
		}
		if int(inst.Length) < 1 || int(inst.Length) > 3 {
			t.Errorf("%s %s: invalid length %d", inst.Name, inst.Mode, inst.Length)
		}
	}

	// 151 documented opcodes plus 80 undocumented ones.
	if n != 151+80 {
		t.Errorf("expected %d opcodes, got %d", 151+80, n)
	}
}

func TestMicroOpNames(t *testing.T) {
	if len(microOpNames) != int(uopResetStack)+1 {
		t.Fatalf("expected %d names, got %d", uopResetStack+1, len(microOpNames))
	}
	if uopFixHigh.String() != "fix-high" || uopDecode.String() != "decode" {
		t.Error("unexpected micro-op names")
	}
}

func TestQueueWrap(t *testing.T) {
	var q uopQueue
	for i := 0; i < 3*queueSize; i++ {
		q.push(op(MicroOpKind(i % 8)))
		if got := q.pop(); got.kind != MicroOpKind(i%8) {
			t.Fatalf("pop %d: got %s", i, got.kind)
		}
	}
	if !q.empty() {
		t.Error("expected empty queue")
	}

	q.pushAll(resetOps)
	if q.len() != 7 || q.peek().kind != uopDummyPC {
		t.Errorf("unexpected queue state %v", q.kinds())
	}
}

func TestUnofficialFlag(t *testing.T) {
	for _, name := range []string{"LAX", "SAX", "DCP", "ISC", "RLA", "RRA", "SLO", "SRE"} {
		for _, inst := range GetInstructionSet().GetInstructions(name) {
			if !inst.Unofficial {
				t.Errorf("%s $%02X not marked unofficial", name, inst.Opcode)
			}
		}
	}
	if Lookup(0xea).Unofficial || !Lookup(0x1a).Unofficial {
		t.Error("NOP variants marked incorrectly")
	}
}
