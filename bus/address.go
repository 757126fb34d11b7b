// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import "fmt"

// An Address is a location in the 16-bit address space. It may be viewed
// either as a single 16-bit value or as a pair of low/high bytes.
type Address uint16

// MakeAddress assembles an address from its low and high bytes.
func MakeAddress(lo, hi byte) Address {
	return Address(lo) | Address(hi)<<8
}

// Lo returns the low byte of the address.
func (a Address) Lo() byte {
	return byte(a)
}

// Hi returns the high byte of the address. It is also the address's page
// number.
func (a Address) Hi() byte {
	return byte(a >> 8)
}

// SetLo replaces the low byte of the address, leaving the high byte
// untouched.
func (a *Address) SetLo(v byte) {
	*a = (*a & 0xff00) | Address(v)
}

// SetHi replaces the high byte of the address, leaving the low byte
// untouched.
func (a *Address) SetHi(v byte) {
	*a = (*a & 0x00ff) | Address(v)<<8
}

// SamePage returns true if both addresses lie on the same 256-byte page.
func (a Address) SamePage(b Address) bool {
	return a.Hi() == b.Hi()
}

func (a Address) String() string {
	return fmt.Sprintf("$%04X", uint16(a))
}

// A Region describes the portion of the address space claimed by a
// device.
type Region interface {
	Contains(addr Address) bool

	// Bounds returns the lowest and highest addresses the region can
	// contain.
	Bounds() (start, end Address)
}

// An AddressRange is a closed interval [Start, End] of addresses.
type AddressRange struct {
	Start Address
	End   Address
}

// Contains returns true if addr lies within the range, inclusive of both
// ends.
func (r AddressRange) Contains(addr Address) bool {
	return addr >= r.Start && addr <= r.End
}

// Bounds returns the first and last address of the range.
func (r AddressRange) Bounds() (start, end Address) {
	return r.Start, r.End
}

func (r AddressRange) String() string {
	return fmt.Sprintf("$%04X-$%04X", uint16(r.Start), uint16(r.End))
}

// An AddressMask matches every address whose masked bits equal Base. It
// describes power-of-two sized regions that are mirrored by incomplete
// address decoding, e.g. Base $0000 Mask $E000 claims $0000-$1FFF.
type AddressMask struct {
	Base Address
	Mask Address
}

// Contains returns true if (addr & Mask) == Base.
func (m AddressMask) Contains(addr Address) bool {
	return addr&m.Mask == m.Base
}

// Bounds returns the first and last address matched by the mask.
func (m AddressMask) Bounds() (start, end Address) {
	return m.Base, m.Base | ^m.Mask
}

func (m AddressMask) String() string {
	return fmt.Sprintf("$%04X/$%04X", uint16(m.Base), uint16(m.Mask))
}
