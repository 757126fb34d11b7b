// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

// RAM is a read/write memory device. When its mapped region is larger than
// its storage, the storage is mirrored across the region.
type RAM struct {
	base Address
	data []byte
}

// NewRAM creates a RAM device of the requested size whose first byte
// appears at address base.
func NewRAM(base Address, size int) *RAM {
	if size <= 0 || size > 0x10000 {
		panic("bus: invalid RAM size")
	}
	return &RAM{base: base, data: make([]byte, size)}
}

// Size returns the number of bytes of storage.
func (r *RAM) Size() int {
	return len(r.data)
}

func (r *RAM) offset(addr Address) int {
	return int(addr-r.base) % len(r.data)
}

// Read returns the byte stored at addr.
func (r *RAM) Read(addr Address) byte {
	return r.data[r.offset(addr)]
}

// Peek is identical to Read; RAM reads have no side effects.
func (r *RAM) Peek(addr Address) byte {
	return r.data[r.offset(addr)]
}

// Write stores v at addr and at all of its mirrors.
func (r *RAM) Write(addr Address, v byte) {
	r.data[r.offset(addr)] = v
}

// Load copies b into storage starting at addr.
func (r *RAM) Load(addr Address, b []byte) {
	for i, v := range b {
		r.data[r.offset(addr+Address(i))] = v
	}
}

// ROM is a read-only memory device. Writes are ignored. Like RAM, a ROM
// smaller than its region is mirrored.
type ROM struct {
	base Address
	data []byte
}

// NewROM creates a ROM device holding a copy of b, whose first byte
// appears at address base.
func NewROM(base Address, b []byte) *ROM {
	if len(b) == 0 || len(b) > 0x10000 {
		panic("bus: invalid ROM size")
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &ROM{base: base, data: data}
}

// Read returns the byte stored at addr.
func (r *ROM) Read(addr Address) byte {
	return r.data[int(addr-r.base)%len(r.data)]
}

// Peek is identical to Read.
func (r *ROM) Peek(addr Address) byte {
	return r.Read(addr)
}

// Write does nothing.
func (r *ROM) Write(addr Address, v byte) {
}
