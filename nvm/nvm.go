/*
	serialupdi
	Copyright (c) 2024 the serialupdi authors.  All right reserved.

	This library is free software; you can redistribute it and/or
	modify it under the terms of the GNU Lesser General Public
	License as published by the Free Software Foundation; either
	version 2.1 of the License, or (at your option) any later version.

	This library is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
	Lesser General Public License for more details.

	You should have received a copy of the GNU Lesser General Public
	License along with this library; if not, write to the Free Software
	Foundation, Inc., 51 Franklin St, Fifth Floor, Boston, MA  02110-1301  USA
*/

// Package nvm sequences commands for the NVM controller embedded in
// UPDI-capable AVR devices. The controller comes in several silicon
// revisions with incompatible opcode tables and write procedures; the
// revision is fixed for a session by the NVM version character in the
// target's SIB.
package nvm

import (
	"time"

	"github.com/avrdudes/serialupdi/updi"
)

// ReadWriter is the slice of the datalink convenience layer the NVM
// controllers need. *updi.Link satisfies it.
type ReadWriter interface {
	ReadByte(address uint32) (byte, error)
	WriteByte(address uint32, value byte) error
	WriteData(address uint32, data []byte) error
	WriteDataWords(address uint32, data []byte) error
}

// Controller drives erase and write operations on one NVM revision.
// Addresses are absolute addresses in the device's unified address
// space (region offset already applied).
type Controller interface {
	ChipErase() error
	EraseFlashPage(address uint32) error
	EraseEEPROM() error
	EraseUserRow(address uint32, size int) error
	WriteFlash(address uint32, data []byte) error
	WriteEEPROM(address uint32, data []byte) error
	WriteUserRow(address uint32, data []byte) error
	WriteFuse(address uint32, value byte) error
	// WaitReady blocks until the controller reports idle, a write error
	// or the ready timeout.
	WaitReady() error
}

// Version identifies the NVM controller revision in effect.
type Version int

const (
	V0 Version = iota
	V2
	V3
)

func (v Version) String() string {
	switch v {
	case V0:
		return "v0"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return "unknown"
	}
}

// VersionForSIB maps the SIB NVM version character to the controller
// revision and the datalink addressing width it requires. The version
// characters '4' and '5' identify newer silicon whose command sets
// match the v2 (word oriented, no page buffer) and v3 (page oriented)
// families respectively. An unknown character is a hard failure.
func VersionForSIB(c byte) (Version, updi.LinkMode, error) {
	switch c {
	case '0':
		return V0, updi.Mode16bit, nil
	case '2', '4':
		return V2, updi.Mode24bit, nil
	case '3', '5':
		return V3, updi.Mode24bit, nil
	default:
		return 0, 0, updi.CapabilityError("nvm version", "unsupported NVM version character %q", c)
	}
}

// defaultReadyTimeout bounds every wait for the controller's busy bits.
const defaultReadyTimeout = 10 * time.Second

// New returns the controller for the given revision. base is the
// address of the NVMCTRL register block in the unified address space.
func New(version Version, rw ReadWriter, base uint32) Controller {
	c := controller{rw: rw, base: base, readyTimeout: defaultReadyTimeout}
	switch version {
	case V2:
		return &v2{controller: c}
	case V3:
		return &v3{controller: c}
	default:
		return &v0{controller: c}
	}
}

// controller carries the state shared by all revisions.
type controller struct {
	rw           ReadWriter
	base         uint32
	readyTimeout time.Duration
}

// command writes one opcode to the CTRLA register at the start of the
// NVMCTRL block (offset 0 on every revision).
func (c *controller) command(cmd byte) error {
	return c.rw.WriteByte(c.base, cmd)
}

// waitReadyAt polls the STATUS register at the given offset until the
// flash and EEPROM busy bits (bits 0 and 1 on every revision) are both
// clear. A set write-error bit fails immediately; polling an error away
// is never correct. Read failures during polling are ignored, the next
// poll retries.
func (c *controller) waitReadyAt(statusOffset uint32, errorMask byte) error {
	deadline := time.Now().Add(c.readyTimeout)
	for {
		status, err := c.rw.ReadByte(c.base + statusOffset)
		if err == nil {
			if status&errorMask != 0 {
				return updi.CapabilityError("nvm wait ready", "NVM controller write error, status 0x%02X", status)
			}
			if status&0x03 == 0 {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return updi.TimeoutError("nvm wait ready", "timeout waiting for NVM controller to be ready")
		}
		time.Sleep(time.Millisecond)
	}
}

// dummyWrite touches one location with 0xFF; several erase sequences
// require the page to be written before the erase command latches.
func (c *controller) dummyWrite(address uint32) error {
	return c.rw.WriteData(address, []byte{0xFF})
}

// writeBuffer loads data at address through the word burst for flash
// and through the byte burst for EEPROM-class memory.
func (c *controller) writeBuffer(address uint32, data []byte, wordAccess bool) error {
	if wordAccess {
		return c.rw.WriteDataWords(address, data)
	}
	return c.rw.WriteData(address, data)
}
