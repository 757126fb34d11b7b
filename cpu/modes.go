// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Addressing-mode templates. Each template is the list of micro-ops that
// follow the opcode fetch; one micro-op is one clock cycle. Templates are
// built once per opcode when the instruction set is created.

func op(kind MicroOpKind) microOp {
	return microOp{kind: kind}
}

func indexed(kind MicroOpKind, r indexReg) microOp {
	return microOp{kind: kind, index: r}
}

func when(c condition, kind MicroOpKind) microOp {
	return microOp{kind: kind, cond: c}
}

// addressOps returns the micro-ops that compute the effective address for
// a memory operand. Reads take the page-crossing cycle only when the
// index carries into the high byte; writes and read-modify-writes always
// take it.
func addressOps(mode Mode, alwaysFix bool) []microOp {
	fix := when(pageCrossed, uopFixHigh)
	if alwaysFix {
		fix = op(uopFixHigh)
	}

	switch mode {
	case ZPG:
		return []microOp{op(uopFetchZP)}
	case ZPX:
		return []microOp{op(uopFetchZP), indexed(uopIndexZP, indexX)}
	case ZPY:
		return []microOp{op(uopFetchZP), indexed(uopIndexZP, indexY)}
	case ABS:
		return []microOp{op(uopFetchLo), op(uopFetchHi)}
	case ABX:
		return []microOp{op(uopFetchLo), indexed(uopFetchHiIndexed, indexX), fix}
	case ABY:
		return []microOp{op(uopFetchLo), indexed(uopFetchHiIndexed, indexY), fix}
	case IDX:
		return []microOp{op(uopFetchPointer), op(uopIndexPointer), op(uopPointerLo), op(uopPointerHi)}
	case IDY:
		return []microOp{op(uopFetchPointer), op(uopPointerLo), op(uopPointerHiIndexed), fix}
	default:
		return nil
	}
}

func newTemplate(inst *Instruction) []microOp {
	var ops []microOp

	switch inst.class {
	case classRead:
		switch inst.Mode {
		case IMM:
			ops = []microOp{op(uopImmediate)}
		case IMP:
			ops = []microOp{op(uopImplied)}
		default:
			ops = append(addressOps(inst.Mode, false), op(uopRead))
		}

	case classWrite:
		ops = append(addressOps(inst.Mode, true), op(uopWrite))

	case classModify:
		if inst.Mode == ACC {
			ops = []microOp{op(uopImplied)}
		} else {
			ops = append(addressOps(inst.Mode, true), op(uopReadData), op(uopModify), op(uopWriteData))
		}

	case classImplied:
		if inst.Mode == IMP {
			ops = []microOp{op(uopImplied)}
		}

	case classBranch:
		if inst.Mode == REL {
			ops = []microOp{
				op(uopBranch),
				when(branchTaken, uopBranchTaken),
				when(pageCrossed, uopBranchFix),
			}
		}

	case classJump:
		switch inst.Mode {
		case ABS:
			ops = []microOp{op(uopFetchLo), op(uopJump)}
		case IND:
			ops = []microOp{op(uopFetchLo), op(uopFetchHi), op(uopIndirectLo), op(uopIndirectHi)}
		}

	case classStack:
		ops = stackOps(inst.sym)
	}

	// A missing or inconsistent template means the opcode table pairs an
	// operation with a mode it cannot be executed through.
	if len(ops) == 0 || !validTemplate(inst, ops) {
		panic(&InvalidOpcodeInvocationError{Name: inst.Name, Mode: inst.Mode, Opcode: inst.Opcode})
	}
	return ops
}

func stackOps(sym opsym) []microOp {
	switch sym {
	case symBRK:
		return []microOp{
			op(uopFetchPadding),
			op(uopPushPCH),
			op(uopPushPCL),
			op(uopPushP),
			op(uopVectorLo),
			op(uopVectorHi),
		}
	case symJSR:
		return []microOp{
			op(uopFetchLo),
			op(uopDummyStack),
			op(uopPushPCH),
			op(uopPushPCL),
			op(uopJump),
		}
	case symRTI:
		return []microOp{
			op(uopDummyPC),
			op(uopDummyStack),
			op(uopPullP),
			op(uopPullPCL),
			op(uopPullPCH),
		}
	case symRTS:
		return []microOp{
			op(uopDummyPC),
			op(uopDummyStack),
			op(uopPullPCL),
			op(uopPullPCH),
			op(uopIncPC),
		}
	case symPHA:
		return []microOp{op(uopDummyPC), op(uopPushA)}
	case symPHP:
		return []microOp{op(uopDummyPC), op(uopPushP)}
	case symPLA:
		return []microOp{op(uopDummyPC), op(uopDummyStack), op(uopPullA)}
	case symPLP:
		return []microOp{op(uopDummyPC), op(uopDummyStack), op(uopPullP)}
	default:
		return nil
	}
}

// interruptOps is the hardware interrupt sequence used for NMI and IRQ.
// It replaces the opcode fetch of the next instruction.
var interruptOps = []microOp{
	op(uopDummyPC),
	op(uopDummyPC),
	op(uopPushPCH),
	op(uopPushPCL),
	op(uopPushPInterrupt),
	op(uopVectorLo),
	op(uopVectorHi),
}

// resetOps is the reset sequence. The three stack cycles are pushes with
// the write line held inactive.
var resetOps = []microOp{
	op(uopDummyPC),
	op(uopDummyPC),
	op(uopResetStack),
	op(uopResetStack),
	op(uopResetStack),
	op(uopVectorLo),
	op(uopVectorHi),
}

// validTemplate checks a template against the documented cycle counts:
// the opcode fetch plus the unconditional micro-ops must equal the base
// cycle count, and the conditional micro-ops must equal the maximum
// penalty.
func validTemplate(inst *Instruction, ops []microOp) bool {
	base, extra := templateCycles(ops)
	return base == int(inst.Cycles) && extra == int(inst.BPCycles)
}

// templateCycles returns the number of cycles a template always takes,
// including the opcode fetch, and the number of cycles it may add.
func templateCycles(ops []microOp) (base, extra int) {
	base = 1
	for _, o := range ops {
		if o.cond == always {
			base++
		} else {
			extra++
		}
	}
	return base, extra
}
