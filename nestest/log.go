// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nestest reads and writes execution logs in the format of the
// reference log distributed with the nestest CPU test ROM, and compares
// CPU instruction traces against them.
//
// A log line looks like this (the PPU column is optional):
//
//	C000  4C F5 C5  JMP $C5F5                       A:00 X:00 Y:00 P:24 SP:FD PPU:  0, 21 CYC:7
package nestest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/cpu"
	"github.com/pkg/errors"
)

// Column layout
const (
	colBytes    = 6
	colMarker   = 15
	colMnemonic = 16
)

// Some mnemonics are spelled differently in the reference log.
var logNames = map[string]string{
	"ISC": "ISB",
}

// An Entry is one parsed log line.
type Entry struct {
	Line       int // line number in the log, when read with ReadLog
	PC         bus.Address
	Bytes      []byte
	Mnemonic   string
	Unofficial bool
	Operand    string
	A, X, Y    byte
	P          byte
	SP         byte
	Cycle      uint64
}

// ParseLine parses a single log line.
func ParseLine(line string) (Entry, error) {
	var e Entry
	line = strings.TrimRight(line, "\r\n")
	if len(line) < colMnemonic+3 {
		return e, errors.Errorf("line too short: %q", line)
	}

	pc, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return e, errors.Wrap(err, "PC")
	}
	e.PC = bus.Address(pc)

	for _, f := range strings.Fields(line[colBytes:colMarker]) {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return e, errors.Wrap(err, "instruction bytes")
		}
		e.Bytes = append(e.Bytes, byte(b))
	}
	if len(e.Bytes) == 0 {
		return e, errors.New("missing instruction bytes")
	}

	e.Unofficial = line[colMarker] == '*'
	e.Mnemonic = line[colMnemonic : colMnemonic+3]

	regs := strings.Index(line[colMnemonic:], " A:")
	if regs < 0 {
		return e, errors.New("missing register fields")
	}
	regs += colMnemonic
	e.Operand = strings.TrimSpace(line[colMnemonic+3 : regs])

	found := 0
	for _, f := range strings.Fields(line[regs:]) {
		key, value, ok := strings.Cut(f, ":")
		if !ok || value == "" {
			continue
		}
		var dst *byte
		switch key {
		case "A":
			dst = &e.A
		case "X":
			dst = &e.X
		case "Y":
			dst = &e.Y
		case "P":
			dst = &e.P
		case "SP":
			dst = &e.SP
		case "CYC":
			c, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return e, errors.Wrap(err, "CYC")
			}
			e.Cycle = c
			found++
			continue
		default:
			continue
		}
		v, err := strconv.ParseUint(value, 16, 8)
		if err != nil {
			return e, errors.Wrap(err, key)
		}
		*dst = byte(v)
		found++
	}
	if found != 6 {
		return e, errors.Errorf("expected 6 register fields, found %d", found)
	}
	return e, nil
}

// ReadLog parses every non-empty line of a log.
func ReadLog(r io.Reader) ([]Entry, error) {
	var entries []Entry
	s := bufio.NewScanner(r)
	n := 0
	for s.Scan() {
		n++
		if strings.TrimSpace(s.Text()) == "" {
			continue
		}
		e, err := ParseLine(s.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		e.Line = n
		entries = append(entries, e)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "nestest log")
	}
	return entries, nil
}

// Format renders a trace record as a log line without the PPU column. The
// annotation is the disassembled instruction text; when it is empty the
// bare mnemonic is used.
func Format(t cpu.InstructionTrace, annotation string) string {
	if annotation == "" {
		annotation = t.Mnemonic
	}
	if alias, ok := logNames[t.Mnemonic]; ok && strings.HasPrefix(annotation, t.Mnemonic) {
		annotation = alias + annotation[len(t.Mnemonic):]
	}

	hex := make([]string, len(t.Bytes))
	for i, b := range t.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}

	marker := ' '
	if t.Unofficial {
		marker = '*'
	}
	return fmt.Sprintf("%04X  %-8s %c%-32s%s CYC:%d",
		uint16(t.PC), strings.Join(hex, " "), marker, annotation, t.Regs, t.Cycle)
}

// A MismatchError describes the first field in which a trace record
// differs from the expected log entry.
type MismatchError struct {
	Line     int
	PC       bus.Address
	Field    string
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("line %d (PC $%04X): %s mismatch: expected %s, got %s",
		e.Line, uint16(e.PC), e.Field, e.Expected, e.Got)
}

// Compare checks a trace record against an expected log entry. It returns
// a *MismatchError naming the first field that differs, or nil.
func Compare(exp Entry, got cpu.InstructionTrace) error {
	mismatch := func(field, e, g string) error {
		return &MismatchError{Line: exp.Line, PC: exp.PC, Field: field, Expected: e, Got: g}
	}
	hex2 := func(v byte) string { return fmt.Sprintf("%02X", v) }

	if exp.PC != got.PC {
		return mismatch("PC", fmt.Sprintf("%04X", uint16(exp.PC)), fmt.Sprintf("%04X", uint16(got.PC)))
	}
	if fmt.Sprintf("% X", exp.Bytes) != fmt.Sprintf("% X", got.Bytes) {
		return mismatch("bytes", fmt.Sprintf("% X", exp.Bytes), fmt.Sprintf("% X", got.Bytes))
	}
	name := got.Mnemonic
	if alias, ok := logNames[name]; ok {
		name = alias
	}
	if exp.Mnemonic != name {
		return mismatch("mnemonic", exp.Mnemonic, name)
	}
	regs := got.Regs
	switch {
	case exp.A != regs.A():
		return mismatch("A", hex2(exp.A), hex2(regs.A()))
	case exp.X != regs.X():
		return mismatch("X", hex2(exp.X), hex2(regs.X()))
	case exp.Y != regs.Y():
		return mismatch("Y", hex2(exp.Y), hex2(regs.Y()))
	case exp.P != byte(regs.P()):
		return mismatch("P", hex2(exp.P), hex2(byte(regs.P())))
	case exp.SP != regs.SP:
		return mismatch("SP", hex2(exp.SP), hex2(regs.SP))
	case exp.Cycle != got.Cycle:
		return mismatch("CYC", strconv.FormatUint(exp.Cycle, 10), strconv.FormatUint(got.Cycle, 10))
	}
	return nil
}
