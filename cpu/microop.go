// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// A MicroOpKind identifies the work done by the CPU during one clock
// cycle. Every kind performs at most one bus access.
type MicroOpKind byte

const (
	uopDecode           MicroOpKind = iota // fetch opcode, queue its micro-ops
	uopImplied                             // dummy read at PC, register operation
	uopImmediate                           // fetch operand, read operation
	uopFetchZP                             // fetch zero page address
	uopFetchLo                             // fetch address low byte
	uopFetchHi                             // fetch address high byte
	uopFetchHiIndexed                      // fetch address high byte, add index to low byte
	uopIndexZP                             // dummy read at zero page address, add index
	uopFixHigh                             // dummy read at unfixed address, carry into high byte
	uopFetchPointer                        // fetch zero page pointer
	uopIndexPointer                        // dummy read at pointer, add X
	uopPointerLo                           // read address low byte through pointer
	uopPointerHi                           // read address high byte through pointer
	uopPointerHiIndexed                    // read address high byte through pointer, add Y
	uopRead                                // read operand, read operation
	uopWrite                               // write register value
	uopReadData                            // read operand into data latch
	uopModify                              // dummy write of data latch, modify operation
	uopWriteData                           // write data latch
	uopBranch                              // fetch offset, evaluate condition
	uopBranchTaken                         // dummy read, add offset to PC low byte
	uopBranchFix                           // dummy read at unfixed PC, fix PC high byte
	uopJump                                // fetch target high byte, load PC
	uopIndirectLo                          // read target low byte through pointer
	uopIndirectHi                          // read target high byte through pointer within page
	uopDummyPC                             // read at PC and discard
	uopFetchPadding                        // read at PC and discard, advance PC
	uopDummyStack                          // read top of stack and discard
	uopPushPCH                             // push PC high byte
	uopPushPCL                             // push PC low byte
	uopPushP                               // push status with break bit set
	uopPushPInterrupt                      // push status with break bit clear
	uopPushA                               // push accumulator
	uopPullA                               // pull accumulator
	uopPullP                               // pull status
	uopPullPCL                             // pull PC low byte
	uopPullPCH                             // pull PC high byte
	uopIncPC                               // dummy read at PC, advance PC
	uopVectorLo                            // read vector low byte, disable interrupts
	uopVectorHi                            // read vector high byte
	uopResetStack                          // dummy stack read, decrement SP
)

var microOpNames = [...]string{
	"decode", "implied", "immediate", "fetch-zp", "fetch-lo", "fetch-hi",
	"fetch-hi-indexed", "index-zp", "fix-high", "fetch-pointer",
	"index-pointer", "pointer-lo", "pointer-hi", "pointer-hi-indexed",
	"read", "write", "read-data", "modify", "write-data", "branch",
	"branch-taken", "branch-fix", "jump", "indirect-lo", "indirect-hi",
	"dummy-pc", "fetch-padding", "dummy-stack", "push-pch", "push-pcl",
	"push-p", "push-p-interrupt", "push-a", "pull-a", "pull-p", "pull-pcl",
	"pull-pch", "inc-pc", "vector-lo", "vector-hi", "reset-stack",
}

func (k MicroOpKind) String() string {
	if int(k) < len(microOpNames) {
		return microOpNames[k]
	}
	return "???"
}

// A condition gates a micro-op whose cycle only occurs on some executions
// of an instruction. A micro-op whose condition is false is dropped from
// the queue without consuming a cycle.
type condition byte

const (
	always      condition = iota
	pageCrossed           // an indexed address or branch target crossed a page
	branchTaken           // the branch condition was true
)

type indexReg byte

const (
	noIndex indexReg = iota
	indexX
	indexY
)

// A microOp is one queued clock cycle of work.
type microOp struct {
	kind  MicroOpKind
	index indexReg
	cond  condition
}

// The longest sequence is an 8-cycle read-modify-write; the queue is sized
// to hold any template plus its trailing decode.
const queueSize = 16

// A uopQueue is a fixed-capacity FIFO of micro-ops.
type uopQueue struct {
	ops  [queueSize]microOp
	head int
	n    int
}

func (q *uopQueue) len() int {
	return q.n
}

func (q *uopQueue) empty() bool {
	return q.n == 0
}

func (q *uopQueue) clear() {
	q.head, q.n = 0, 0
}

func (q *uopQueue) push(op microOp) {
	if q.n == queueSize {
		panic("cpu: micro-op queue overflow")
	}
	q.ops[(q.head+q.n)%queueSize] = op
	q.n++
}

func (q *uopQueue) pushAll(ops []microOp) {
	for _, op := range ops {
		q.push(op)
	}
}

func (q *uopQueue) peek() *microOp {
	return &q.ops[q.head]
}

func (q *uopQueue) pop() microOp {
	op := q.ops[q.head]
	q.head = (q.head + 1) % queueSize
	q.n--
	return op
}

func (q *uopQueue) kinds() []MicroOpKind {
	k := make([]MicroOpKind, q.n)
	for i := 0; i < q.n; i++ {
		k[i] = q.ops[(q.head+i)%queueSize].kind
	}
	return k
}
