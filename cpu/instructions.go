// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "strings"

// An opsym is an internal symbol used to associate an opcode's data
// with its instructions.
type opsym byte

const (
	symADC opsym = iota
	symAND
	symASL
	symBCC
	symBCS
	symBEQ
	symBIT
	symBMI
	symBNE
	symBPL
	symBRK
	symBVC
	symBVS
	symCLC
	symCLD
	symCLI
	symCLV
	symCMP
	symCPX
	symCPY
	symDEC
	symDEX
	symDEY
	symEOR
	symINC
	symINX
	symINY
	symJMP
	symJSR
	symLDA
	symLDX
	symLDY
	symLSR
	symNOP
	symORA
	symPHA
	symPHP
	symPLA
	symPLP
	symROL
	symROR
	symRTI
	symRTS
	symSBC
	symSEC
	symSED
	symSEI
	symSTA
	symSTX
	symSTY
	symTAX
	symTAY
	symTSX
	symTXA
	symTXS
	symTYA

	// undocumented
	symDCP
	symISC
	symLAX
	symRLA
	symRRA
	symSAX
	symSLO
	symSRE
)

// A class describes how an instruction uses its operand, which in turn
// selects the micro-op template used to execute it.
type class byte

const (
	classRead    class = iota // operand value is read and consumed
	classWrite                // a register value is stored to memory
	classModify               // read-modify-write of memory or accumulator
	classImplied              // no memory operand
	classBranch               // conditional relative branch
	classJump                 // JMP
	classStack                // fixed sequences: BRK, JSR, RTI, RTS, PHx, PLx
)

var classNames = [...]string{"read", "write", "modify", "implied", "branch", "jump", "stack"}

func (c class) String() string {
	return classNames[c]
}

// Implementation class for each instruction symbol
type opcodeImpl struct {
	sym   opsym
	name  string
	class class
}

var impl = []opcodeImpl{
	{symADC, "ADC", classRead},
	{symAND, "AND", classRead},
	{symASL, "ASL", classModify},
	{symBCC, "BCC", classBranch},
	{symBCS, "BCS", classBranch},
	{symBEQ, "BEQ", classBranch},
	{symBIT, "BIT", classRead},
	{symBMI, "BMI", classBranch},
	{symBNE, "BNE", classBranch},
	{symBPL, "BPL", classBranch},
	{symBRK, "BRK", classStack},
	{symBVC, "BVC", classBranch},
	{symBVS, "BVS", classBranch},
	{symCLC, "CLC", classImplied},
	{symCLD, "CLD", classImplied},
	{symCLI, "CLI", classImplied},
	{symCLV, "CLV", classImplied},
	{symCMP, "CMP", classRead},
	{symCPX, "CPX", classRead},
	{symCPY, "CPY", classRead},
	{symDEC, "DEC", classModify},
	{symDEX, "DEX", classImplied},
	{symDEY, "DEY", classImplied},
	{symEOR, "EOR", classRead},
	{symINC, "INC", classModify},
	{symINX, "INX", classImplied},
	{symINY, "INY", classImplied},
	{symJMP, "JMP", classJump},
	{symJSR, "JSR", classStack},
	{symLDA, "LDA", classRead},
	{symLDX, "LDX", classRead},
	{symLDY, "LDY", classRead},
	{symLSR, "LSR", classModify},
	{symNOP, "NOP", classRead},
	{symORA, "ORA", classRead},
	{symPHA, "PHA", classStack},
	{symPHP, "PHP", classStack},
	{symPLA, "PLA", classStack},
	{symPLP, "PLP", classStack},
	{symROL, "ROL", classModify},
	{symROR, "ROR", classModify},
	{symRTI, "RTI", classStack},
	{symRTS, "RTS", classStack},
	{symSBC, "SBC", classRead},
	{symSEC, "SEC", classImplied},
	{symSED, "SED", classImplied},
	{symSEI, "SEI", classImplied},
	{symSTA, "STA", classWrite},
	{symSTX, "STX", classWrite},
	{symSTY, "STY", classWrite},
	{symTAX, "TAX", classImplied},
	{symTAY, "TAY", classImplied},
	{symTSX, "TSX", classImplied},
	{symTXA, "TXA", classImplied},
	{symTXS, "TXS", classImplied},
	{symTYA, "TYA", classImplied},
	{symDCP, "DCP", classModify},
	{symISC, "ISC", classModify},
	{symLAX, "LAX", classRead},
	{symRLA, "RLA", classModify},
	{symRRA, "RRA", classModify},
	{symSAX, "SAX", classWrite},
	{symSLO, "SLO", classModify},
	{symSRE, "SRE", classModify},
}

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	ACC             // Accumulator (no operand)
)

var modeNames = [...]string{"IMM", "IMP", "REL", "ZPG", "ZPX", "ZPY", "ABS", "ABX", "ABY", "IND", "IDX", "IDY", "ACC"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "???"
}

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	sym        opsym // internal opcode symbol
	mode       Mode  // addressing mode
	opcode     byte  // opcode hex value
	length     byte  // length of opcode + operand in bytes
	cycles     byte  // number of CPU cycles to execute command
	bpcycles   byte  // maximum additional cycles (page crossing, taken branch)
	unofficial bool  // opcode is not part of the documented instruction set
}

// All supported (opcode, mode) pairs
var data = []opcodeData{
	{symLDA, IMM, 0xa9, 2, 2, 0, false},
	{symLDA, ZPG, 0xa5, 2, 3, 0, false},
	{symLDA, ZPX, 0xb5, 2, 4, 0, false},
	{symLDA, ABS, 0xad, 3, 4, 0, false},
	{symLDA, ABX, 0xbd, 3, 4, 1, false},
	{symLDA, ABY, 0xb9, 3, 4, 1, false},
	{symLDA, IDX, 0xa1, 2, 6, 0, false},
	{symLDA, IDY, 0xb1, 2, 5, 1, false},

	{symLDX, IMM, 0xa2, 2, 2, 0, false},
	{symLDX, ZPG, 0xa6, 2, 3, 0, false},
	{symLDX, ZPY, 0xb6, 2, 4, 0, false},
	{symLDX, ABS, 0xae, 3, 4, 0, false},
	{symLDX, ABY, 0xbe, 3, 4, 1, false},

	{symLDY, IMM, 0xa0, 2, 2, 0, false},
	{symLDY, ZPG, 0xa4, 2, 3, 0, false},
	{symLDY, ZPX, 0xb4, 2, 4, 0, false},
	{symLDY, ABS, 0xac, 3, 4, 0, false},
	{symLDY, ABX, 0xbc, 3, 4, 1, false},

	{symSTA, ZPG, 0x85, 2, 3, 0, false},
	{symSTA, ZPX, 0x95, 2, 4, 0, false},
	{symSTA, ABS, 0x8d, 3, 4, 0, false},
	{symSTA, ABX, 0x9d, 3, 5, 0, false},
	{symSTA, ABY, 0x99, 3, 5, 0, false},
	{symSTA, IDX, 0x81, 2, 6, 0, false},
	{symSTA, IDY, 0x91, 2, 6, 0, false},

	{symSTX, ZPG, 0x86, 2, 3, 0, false},
	{symSTX, ZPY, 0x96, 2, 4, 0, false},
	{symSTX, ABS, 0x8e, 3, 4, 0, false},

	{symSTY, ZPG, 0x84, 2, 3, 0, false},
	{symSTY, ZPX, 0x94, 2, 4, 0, false},
	{symSTY, ABS, 0x8c, 3, 4, 0, false},

	{symADC, IMM, 0x69, 2, 2, 0, false},
	{symADC, ZPG, 0x65, 2, 3, 0, false},
	{symADC, ZPX, 0x75, 2, 4, 0, false},
	{symADC, ABS, 0x6d, 3, 4, 0, false},
	{symADC, ABX, 0x7d, 3, 4, 1, false},
	{symADC, ABY, 0x79, 3, 4, 1, false},
	{symADC, IDX, 0x61, 2, 6, 0, false},
	{symADC, IDY, 0x71, 2, 5, 1, false},

	{symSBC, IMM, 0xe9, 2, 2, 0, false},
	{symSBC, ZPG, 0xe5, 2, 3, 0, false},
	{symSBC, ZPX, 0xf5, 2, 4, 0, false},
	{symSBC, ABS, 0xed, 3, 4, 0, false},
	{symSBC, ABX, 0xfd, 3, 4, 1, false},
	{symSBC, ABY, 0xf9, 3, 4, 1, false},
	{symSBC, IDX, 0xe1, 2, 6, 0, false},
	{symSBC, IDY, 0xf1, 2, 5, 1, false},
	{symSBC, IMM, 0xeb, 2, 2, 0, true},

	{symCMP, IMM, 0xc9, 2, 2, 0, false},
	{symCMP, ZPG, 0xc5, 2, 3, 0, false},
	{symCMP, ZPX, 0xd5, 2, 4, 0, false},
	{symCMP, ABS, 0xcd, 3, 4, 0, false},
	{symCMP, ABX, 0xdd, 3, 4, 1, false},
	{symCMP, ABY, 0xd9, 3, 4, 1, false},
	{symCMP, IDX, 0xc1, 2, 6, 0, false},
	{symCMP, IDY, 0xd1, 2, 5, 1, false},

	{symCPX, IMM, 0xe0, 2, 2, 0, false},
	{symCPX, ZPG, 0xe4, 2, 3, 0, false},
	{symCPX, ABS, 0xec, 3, 4, 0, false},

	{symCPY, IMM, 0xc0, 2, 2, 0, false},
	{symCPY, ZPG, 0xc4, 2, 3, 0, false},
	{symCPY, ABS, 0xcc, 3, 4, 0, false},

	{symBIT, ZPG, 0x24, 2, 3, 0, false},
	{symBIT, ABS, 0x2c, 3, 4, 0, false},

	{symCLC, IMP, 0x18, 1, 2, 0, false},
	{symSEC, IMP, 0x38, 1, 2, 0, false},
	{symCLI, IMP, 0x58, 1, 2, 0, false},
	{symSEI, IMP, 0x78, 1, 2, 0, false},
	{symCLD, IMP, 0xd8, 1, 2, 0, false},
	{symSED, IMP, 0xf8, 1, 2, 0, false},
	{symCLV, IMP, 0xb8, 1, 2, 0, false},

	{symBCC, REL, 0x90, 2, 2, 2, false},
	{symBCS, REL, 0xb0, 2, 2, 2, false},
	{symBEQ, REL, 0xf0, 2, 2, 2, false},
	{symBNE, REL, 0xd0, 2, 2, 2, false},
	{symBMI, REL, 0x30, 2, 2, 2, false},
	{symBPL, REL, 0x10, 2, 2, 2, false},
	{symBVC, REL, 0x50, 2, 2, 2, false},
	{symBVS, REL, 0x70, 2, 2, 2, false},

	{symBRK, IMP, 0x00, 1, 7, 0, false},

	{symAND, IMM, 0x29, 2, 2, 0, false},
	{symAND, ZPG, 0x25, 2, 3, 0, false},
	{symAND, ZPX, 0x35, 2, 4, 0, false},
	{symAND, ABS, 0x2d, 3, 4, 0, false},
	{symAND, ABX, 0x3d, 3, 4, 1, false},
	{symAND, ABY, 0x39, 3, 4, 1, false},
	{symAND, IDX, 0x21, 2, 6, 0, false},
	{symAND, IDY, 0x31, 2, 5, 1, false},

	{symORA, IMM, 0x09, 2, 2, 0, false},
	{symORA, ZPG, 0x05, 2, 3, 0, false},
	{symORA, ZPX, 0x15, 2, 4, 0, false},
	{symORA, ABS, 0x0d, 3, 4, 0, false},
	{symORA, ABX, 0x1d, 3, 4, 1, false},
	{symORA, ABY, 0x19, 3, 4, 1, false},
	{symORA, IDX, 0x01, 2, 6, 0, false},
	{symORA, IDY, 0x11, 2, 5, 1, false},

	{symEOR, IMM, 0x49, 2, 2, 0, false},
	{symEOR, ZPG, 0x45, 2, 3, 0, false},
	{symEOR, ZPX, 0x55, 2, 4, 0, false},
	{symEOR, ABS, 0x4d, 3, 4, 0, false},
	{symEOR, ABX, 0x5d, 3, 4, 1, false},
	{symEOR, ABY, 0x59, 3, 4, 1, false},
	{symEOR, IDX, 0x41, 2, 6, 0, false},
	{symEOR, IDY, 0x51, 2, 5, 1, false},

	{symINC, ZPG, 0xe6, 2, 5, 0, false},
	{symINC, ZPX, 0xf6, 2, 6, 0, false},
	{symINC, ABS, 0xee, 3, 6, 0, false},
	{symINC, ABX, 0xfe, 3, 7, 0, false},

	{symDEC, ZPG, 0xc6, 2, 5, 0, false},
	{symDEC, ZPX, 0xd6, 2, 6, 0, false},
	{symDEC, ABS, 0xce, 3, 6, 0, false},
	{symDEC, ABX, 0xde, 3, 7, 0, false},

	{symINX, IMP, 0xe8, 1, 2, 0, false},
	{symINY, IMP, 0xc8, 1, 2, 0, false},

	{symDEX, IMP, 0xca, 1, 2, 0, false},
	{symDEY, IMP, 0x88, 1, 2, 0, false},

	{symJMP, ABS, 0x4c, 3, 3, 0, false},
	{symJMP, IND, 0x6c, 3, 5, 0, false},

	{symJSR, ABS, 0x20, 3, 6, 0, false},
	{symRTS, IMP, 0x60, 1, 6, 0, false},

	{symRTI, IMP, 0x40, 1, 6, 0, false},

	{symNOP, IMP, 0xea, 1, 2, 0, false},

	{symTAX, IMP, 0xaa, 1, 2, 0, false},
	{symTXA, IMP, 0x8a, 1, 2, 0, false},
	{symTAY, IMP, 0xa8, 1, 2, 0, false},
	{symTYA, IMP, 0x98, 1, 2, 0, false},
	{symTXS, IMP, 0x9a, 1, 2, 0, false},
	{symTSX, IMP, 0xba, 1, 2, 0, false},

	{symPHA, IMP, 0x48, 1, 3, 0, false},
	{symPLA, IMP, 0x68, 1, 4, 0, false},
	{symPHP, IMP, 0x08, 1, 3, 0, false},
	{symPLP, IMP, 0x28, 1, 4, 0, false},

	{symASL, ACC, 0x0a, 1, 2, 0, false},
	{symASL, ZPG, 0x06, 2, 5, 0, false},
	{symASL, ZPX, 0x16, 2, 6, 0, false},
	{symASL, ABS, 0x0e, 3, 6, 0, false},
	{symASL, ABX, 0x1e, 3, 7, 0, false},

	{symLSR, ACC, 0x4a, 1, 2, 0, false},
	{symLSR, ZPG, 0x46, 2, 5, 0, false},
	{symLSR, ZPX, 0x56, 2, 6, 0, false},
	{symLSR, ABS, 0x4e, 3, 6, 0, false},
	{symLSR, ABX, 0x5e, 3, 7, 0, false},

	{symROL, ACC, 0x2a, 1, 2, 0, false},
	{symROL, ZPG, 0x26, 2, 5, 0, false},
	{symROL, ZPX, 0x36, 2, 6, 0, false},
	{symROL, ABS, 0x2e, 3, 6, 0, false},
	{symROL, ABX, 0x3e, 3, 7, 0, false},

	{symROR, ACC, 0x6a, 1, 2, 0, false},
	{symROR, ZPG, 0x66, 2, 5, 0, false},
	{symROR, ZPX, 0x76, 2, 6, 0, false},
	{symROR, ABS, 0x6e, 3, 6, 0, false},
	{symROR, ABX, 0x7e, 3, 7, 0, false},

	{symNOP, IMP, 0x1a, 1, 2, 0, true},
	{symNOP, IMP, 0x3a, 1, 2, 0, true},
	{symNOP, IMP, 0x5a, 1, 2, 0, true},
	{symNOP, IMP, 0x7a, 1, 2, 0, true},
	{symNOP, IMP, 0xda, 1, 2, 0, true},
	{symNOP, IMP, 0xfa, 1, 2, 0, true},
	{symNOP, IMM, 0x80, 2, 2, 0, true},
	{symNOP, IMM, 0x82, 2, 2, 0, true},
	{symNOP, IMM, 0x89, 2, 2, 0, true},
	{symNOP, IMM, 0xc2, 2, 2, 0, true},
	{symNOP, IMM, 0xe2, 2, 2, 0, true},
	{symNOP, ZPG, 0x04, 2, 3, 0, true},
	{symNOP, ZPG, 0x44, 2, 3, 0, true},
	{symNOP, ZPG, 0x64, 2, 3, 0, true},
	{symNOP, ZPX, 0x14, 2, 4, 0, true},
	{symNOP, ZPX, 0x34, 2, 4, 0, true},
	{symNOP, ZPX, 0x54, 2, 4, 0, true},
	{symNOP, ZPX, 0x74, 2, 4, 0, true},
	{symNOP, ZPX, 0xd4, 2, 4, 0, true},
	{symNOP, ZPX, 0xf4, 2, 4, 0, true},
	{symNOP, ABS, 0x0c, 3, 4, 0, true},
	{symNOP, ABX, 0x1c, 3, 4, 1, true},
	{symNOP, ABX, 0x3c, 3, 4, 1, true},
	{symNOP, ABX, 0x5c, 3, 4, 1, true},
	{symNOP, ABX, 0x7c, 3, 4, 1, true},
	{symNOP, ABX, 0xdc, 3, 4, 1, true},
	{symNOP, ABX, 0xfc, 3, 4, 1, true},

	{symLAX, ZPG, 0xa7, 2, 3, 0, true},
	{symLAX, ZPY, 0xb7, 2, 4, 0, true},
	{symLAX, ABS, 0xaf, 3, 4, 0, true},
	{symLAX, ABY, 0xbf, 3, 4, 1, true},
	{symLAX, IDX, 0xa3, 2, 6, 0, true},
	{symLAX, IDY, 0xb3, 2, 5, 1, true},

	{symSAX, ZPG, 0x87, 2, 3, 0, true},
	{symSAX, ZPY, 0x97, 2, 4, 0, true},
	{symSAX, ABS, 0x8f, 3, 4, 0, true},
	{symSAX, IDX, 0x83, 2, 6, 0, true},

	{symDCP, ZPG, 0xc7, 2, 5, 0, true},
	{symDCP, ZPX, 0xd7, 2, 6, 0, true},
	{symDCP, ABS, 0xcf, 3, 6, 0, true},
	{symDCP, ABX, 0xdf, 3, 7, 0, true},
	{symDCP, ABY, 0xdb, 3, 7, 0, true},
	{symDCP, IDX, 0xc3, 2, 8, 0, true},
	{symDCP, IDY, 0xd3, 2, 8, 0, true},

	{symISC, ZPG, 0xe7, 2, 5, 0, true},
	{symISC, ZPX, 0xf7, 2, 6, 0, true},
	{symISC, ABS, 0xef, 3, 6, 0, true},
	{symISC, ABX, 0xff, 3, 7, 0, true},
	{symISC, ABY, 0xfb, 3, 7, 0, true},
	{symISC, IDX, 0xe3, 2, 8, 0, true},
	{symISC, IDY, 0xf3, 2, 8, 0, true},

	{symSLO, ZPG, 0x07, 2, 5, 0, true},
	{symSLO, ZPX, 0x17, 2, 6, 0, true},
	{symSLO, ABS, 0x0f, 3, 6, 0, true},
	{symSLO, ABX, 0x1f, 3, 7, 0, true},
	{symSLO, ABY, 0x1b, 3, 7, 0, true},
	{symSLO, IDX, 0x03, 2, 8, 0, true},
	{symSLO, IDY, 0x13, 2, 8, 0, true},

	{symRLA, ZPG, 0x27, 2, 5, 0, true},
	{symRLA, ZPX, 0x37, 2, 6, 0, true},
	{symRLA, ABS, 0x2f, 3, 6, 0, true},
	{symRLA, ABX, 0x3f, 3, 7, 0, true},
	{symRLA, ABY, 0x3b, 3, 7, 0, true},
	{symRLA, IDX, 0x23, 2, 8, 0, true},
	{symRLA, IDY, 0x33, 2, 8, 0, true},

	{symSRE, ZPG, 0x47, 2, 5, 0, true},
	{symSRE, ZPX, 0x57, 2, 6, 0, true},
	{symSRE, ABS, 0x4f, 3, 6, 0, true},
	{symSRE, ABX, 0x5f, 3, 7, 0, true},
	{symSRE, ABY, 0x5b, 3, 7, 0, true},
	{symSRE, IDX, 0x43, 2, 8, 0, true},
	{symSRE, IDY, 0x53, 2, 8, 0, true},

	{symRRA, ZPG, 0x67, 2, 5, 0, true},
	{symRRA, ZPX, 0x77, 2, 6, 0, true},
	{symRRA, ABS, 0x6f, 3, 6, 0, true},
	{symRRA, ABX, 0x7f, 3, 7, 0, true},
	{symRRA, ABY, 0x7b, 3, 7, 0, true},
	{symRRA, IDX, 0x63, 2, 8, 0, true},
	{symRRA, IDY, 0x73, 2, 8, 0, true},
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value, its operand size, and its CPU cycle
// cost.
type Instruction struct {
	Name       string    // all-caps name of the instruction
	Mode       Mode      // addressing mode
	Opcode     byte      // hexadecimal opcode value
	Length     byte      // combined size of opcode and operand, in bytes
	Cycles     byte      // number of CPU cycles to execute the instruction
	BPCycles   byte      // maximum additional cycles (page cross, taken branch)
	Unofficial bool      // not part of the documented instruction set
	sym        opsym     // internal symbol
	class      class     // operand usage
	ops        []microOp // micro-ops following the opcode fetch
}

// An InstructionSet maps every opcode to its instruction. Opcodes the CPU
// does not support map to nil.
type InstructionSet struct {
	instructions [256]*Instruction
	variants     map[string][]*Instruction
}

// Lookup retrieves the CPU instruction corresponding to the requested
// opcode. It returns nil if the opcode is not supported.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return s.instructions[opcode]
}

// GetInstructions returns all CPU instructions whose name matches the
// provided string.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

func newInstructionSet() *InstructionSet {
	set := &InstructionSet{variants: make(map[string][]*Instruction)}

	symToImpl := make(map[opsym]*opcodeImpl, len(impl))
	for i := range impl {
		symToImpl[impl[i].sym] = &impl[i]
	}

	for _, d := range data {
		impl, ok := symToImpl[d.sym]
		if !ok {
			panic("missing instruction implementation")
		}
		if set.instructions[d.opcode] != nil {
			panic("duplicate opcode")
		}

		inst := &Instruction{
			Name:       impl.name,
			Mode:       d.mode,
			Opcode:     d.opcode,
			Length:     d.length,
			Cycles:     d.cycles,
			BPCycles:   d.bpcycles,
			Unofficial: d.unofficial,
			sym:        d.sym,
			class:      impl.class,
		}
		inst.ops = newTemplate(inst)

		set.instructions[d.opcode] = inst
		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}
	return set
}

var instructionSet = newInstructionSet()

// GetInstructionSet returns the instruction set of the CPU.
func GetInstructionSet() *InstructionSet {
	return instructionSet
}

// Lookup retrieves the instruction for an opcode from the CPU's
// instruction set, or nil if the opcode is unsupported.
func Lookup(opcode byte) *Instruction {
	return instructionSet.instructions[opcode]
}
