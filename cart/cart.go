// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cart reads NES cartridge images in the iNES format.
package cart

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/beevik/nes6502/logger"
	"github.com/pkg/errors"
)

// Errors
var (
	ErrBadMagic          = errors.New("not an iNES image")
	ErrTruncated         = errors.New("iNES image truncated")
	ErrUnsupportedMapper = errors.New("unsupported mapper")
)

const (
	magic       = 0x1a53454e // "NES\x1A", little endian
	headerSize  = 16
	trainerSize = 512
	prgBankSize = 16 * 1024
	chrBankSize = 8 * 1024
)

// Flag 6 bits
const (
	flagVertical   = 1 << 0
	flagBattery    = 1 << 1
	flagTrainer    = 1 << 2
	flagFourScreen = 1 << 3
)

// Mirroring describes how the nametables are arranged.
type Mirroring byte

const (
	Horizontal Mirroring = iota
	Vertical
	FourScreen
)

func (m Mirroring) String() string {
	switch m {
	case Vertical:
		return "vertical"
	case FourScreen:
		return "four-screen"
	default:
		return "horizontal"
	}
}

type header struct {
	Magic  uint32
	NumPRG byte // 16KB units
	NumCHR byte // 8KB units; zero means CHR-RAM
	Flags6 byte
	Flags7 byte
	NumRAM byte
	_      [7]byte
}

// Cartridge is the decoded contents of an iNES image.
type Cartridge struct {
	PRG       []byte
	CHR       []byte
	CHRRAM    bool
	Mapper    int
	Mirroring Mirroring
	Battery   bool
}

// Load reads an iNES image from a file.
func Load(filename string) (*Cartridge, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "cart")
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cart %s", filename)
	}
	return c, nil
}

// Decode parses an in-memory iNES image.
func Decode(b []byte) (*Cartridge, error) {
	return Read(bytes.NewReader(b))
}

// Read parses an iNES image.
func Read(r io.Reader) (*Cartridge, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(ErrTruncated, "header")
	}
	if h.Magic != magic {
		return nil, ErrBadMagic
	}
	if h.NumPRG == 0 {
		return nil, errors.New("image has no PRG-ROM")
	}

	// NES 2.0 images use bits 2-3 of flags 7 as a marker; the extended
	// fields are not interpreted.
	if h.Flags7&0x0c == 0x08 {
		logger.Log("cart", "NES 2.0 header read as iNES")
	}

	if h.Flags6&flagTrainer != 0 {
		if _, err := io.CopyN(io.Discard, r, trainerSize); err != nil {
			return nil, errors.Wrap(ErrTruncated, "trainer")
		}
		logger.Log("cart", "skipped 512-byte trainer")
	}

	c := &Cartridge{
		Mapper:  int(h.Flags7&0xf0) | int(h.Flags6>>4),
		Battery: h.Flags6&flagBattery != 0,
	}
	switch {
	case h.Flags6&flagFourScreen != 0:
		c.Mirroring = FourScreen
	case h.Flags6&flagVertical != 0:
		c.Mirroring = Vertical
	}

	c.PRG = make([]byte, int(h.NumPRG)*prgBankSize)
	if _, err := io.ReadFull(r, c.PRG); err != nil {
		return nil, errors.Wrapf(ErrTruncated, "PRG-ROM (%d banks)", h.NumPRG)
	}

	if h.NumCHR == 0 {
		c.CHR = make([]byte, chrBankSize)
		c.CHRRAM = true
	} else {
		c.CHR = make([]byte, int(h.NumCHR)*chrBankSize)
		if _, err := io.ReadFull(r, c.CHR); err != nil {
			return nil, errors.Wrapf(ErrTruncated, "CHR-ROM (%d banks)", h.NumCHR)
		}
	}

	logger.Logf("cart", "mapper %d, %dKB PRG, %dKB CHR, %s mirroring",
		c.Mapper, len(c.PRG)/1024, len(c.CHR)/1024, c.Mirroring)
	return c, nil
}

// Encode returns the cartridge as an iNES image.
func (c *Cartridge) Encode() []byte {
	h := header{
		Magic:  magic,
		NumPRG: byte(len(c.PRG) / prgBankSize),
		Flags6: byte(c.Mapper&0x0f) << 4,
		Flags7: byte(c.Mapper & 0xf0),
	}
	if !c.CHRRAM {
		h.NumCHR = byte(len(c.CHR) / chrBankSize)
	}
	switch c.Mirroring {
	case Vertical:
		h.Flags6 |= flagVertical
	case FourScreen:
		h.Flags6 |= flagFourScreen
	}
	if c.Battery {
		h.Flags6 |= flagBattery
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &h)
	buf.Write(c.PRG)
	if !c.CHRRAM {
		buf.Write(c.CHR)
	}
	return buf.Bytes()
}
