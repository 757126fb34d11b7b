// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/nes6502/bus"
	"github.com/beevik/nes6502/logger"
	lua "github.com/yuin/gopher-lua"
)

// runScript executes a Lua script with the console bindings installed.
func (h *Host) runScript(filename string) error {
	L := h.newLuaState()
	defer L.Close()
	defer h.flush()
	return L.DoFile(filename)
}

// runScriptString executes Lua source with the console bindings installed.
func (h *Host) runScriptString(src string) error {
	L := h.newLuaState()
	defer L.Close()
	defer h.flush()
	return L.DoString(src)
}

func (h *Host) newLuaState() *lua.LState {
	L := lua.NewState()
	for name, fn := range map[string]lua.LGFunction{
		"peek":      h.luaPeek,
		"poke":      h.luaPoke,
		"step":      h.luaStep,
		"stepcycle": h.luaStepCycle,
		"cycles":    h.luaCycles,
		"registers": h.luaRegisters,
		"setpc":     h.luaSetPC,
		"reset":     h.luaReset,
		"log":       h.luaLog,
		"print":     h.luaPrint,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	return L
}

// peek(addr) returns the byte at addr without side effects.
func (h *Host) luaPeek(L *lua.LState) int {
	addr := L.CheckInt(1)
	L.Push(lua.LNumber(h.console.Bus.Peek(bus.Address(addr))))
	return 1
}

// poke(addr, value) writes a byte through the bus.
func (h *Host) luaPoke(L *lua.LState) int {
	addr := L.CheckInt(1)
	v := L.CheckInt(2)
	h.console.Bus.Write(bus.Address(addr), byte(v))
	return 0
}

// step([count]) executes instructions and returns the new PC. It stops
// early at a breakpoint or when the CPU halts.
func (h *Host) luaStep(L *lua.LState) int {
	count := L.OptInt(1, 1)
	h.state = stateRunning
	for i := 0; i < count && h.state == stateRunning; i++ {
		h.step()
	}
	halted := h.state == stateHalted
	h.finishStep()
	if halted {
		L.RaiseError("cpu halted at $%04X", uint16(h.cpu.Reg.PC))
	}
	L.Push(lua.LNumber(h.cpu.Reg.PC))
	return 1
}

// stepcycle([count]) executes clock cycles and returns the total cycle
// count.
func (h *Host) luaStepCycle(L *lua.LState) int {
	count := L.OptInt(1, 1)
	h.state = stateRunning
	for i := 0; i < count && h.state == stateRunning; i++ {
		h.stepCycle()
	}
	halted := h.state == stateHalted
	h.finishStep()
	if halted {
		L.RaiseError("cpu halted at $%04X", uint16(h.cpu.Reg.PC))
	}
	L.Push(lua.LNumber(h.cpu.Cycles))
	return 1
}

// cycles() returns the number of clock cycles executed.
func (h *Host) luaCycles(L *lua.LState) int {
	L.Push(lua.LNumber(h.cpu.Cycles))
	return 1
}

// registers() returns a table with fields a, x, y, p, sp and pc.
func (h *Host) luaRegisters(L *lua.LState) int {
	r := &h.cpu.Reg
	t := L.NewTable()
	L.SetField(t, "a", lua.LNumber(r.A()))
	L.SetField(t, "x", lua.LNumber(r.X()))
	L.SetField(t, "y", lua.LNumber(r.Y()))
	L.SetField(t, "p", lua.LNumber(r.P()))
	L.SetField(t, "sp", lua.LNumber(r.SP))
	L.SetField(t, "pc", lua.LNumber(r.PC))
	L.Push(t)
	return 1
}

// setpc(addr) moves the program counter.
func (h *Host) luaSetPC(L *lua.LState) int {
	h.cpu.SetPC(bus.Address(L.CheckInt(1)))
	return 0
}

// reset() runs the reset sequence.
func (h *Host) luaReset(L *lua.LState) int {
	if err := h.console.Reset(); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// log(text) adds an entry to the log.
func (h *Host) luaLog(L *lua.LState) int {
	logger.Log("lua", L.CheckString(1))
	return 0
}

// print(...) writes its arguments to the monitor's output.
func (h *Host) luaPrint(L *lua.LState) int {
	args := make([]string, L.GetTop())
	for i := range args {
		args[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	h.println(strings.Join(args, "\t"))
	return 0
}
