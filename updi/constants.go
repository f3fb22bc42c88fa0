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

// Package updi implements the transport and datalink layers of the UPDI
// (Unified Program and Debug Interface) protocol spoken by modern AVR
// devices over a single-wire asynchronous serial line.
package updi

// UPDI instruction set. Every frame on the wire starts with PhySync
// followed by one of these opcodes, possibly OR-ed with pointer-mode,
// address-width and data-size bits.
const (
	OpLDS    = 0x00
	OpSTS    = 0x40
	OpLD     = 0x20
	OpST     = 0x60
	OpLDCS   = 0x80
	OpSTCS   = 0xC0
	OpRepeat = 0xA0
	OpKey    = 0xE0
)

// Pointer access modes for LD/ST.
const (
	PtrDirect  = 0x00
	PtrInc     = 0x04
	PtrAddress = 0x08
)

// Address width bits for LDS/STS.
const (
	Address8  = 0x00
	Address16 = 0x04
	Address24 = 0x08
)

// Data size bits.
const (
	Data8  = 0x00
	Data16 = 0x01
	Data24 = 0x02
)

// KEY frame variants and size classes. A size class of n selects a key
// of 8<<n bytes (64, 128 or 256 bits).
const (
	KeyKey = 0x00
	KeySIB = 0x04

	Key64  = 0x00
	Key128 = 0x01
	Key256 = 0x02

	SIB32Bytes = Key256
)

const (
	RepeatByte = 0x00

	// MaxRepeatSize is the largest burst the one-byte repeat counter can
	// express (the counter is off-by-one: 0 means one element).
	MaxRepeatSize = 0xFF + 1
)

// Physical layer constants.
const (
	PhySync  = 0x55
	PhyAck   = 0x40
	PhyBreak = 0x00
)

// Control/Status and ASI register address map.
const (
	CSStatusA      = 0x00
	CSStatusB      = 0x01
	CSCtrlA        = 0x02
	CSCtrlB        = 0x03
	ASIKeyStatus   = 0x07
	ASIResetReq    = 0x08
	ASICtrlA       = 0x09
	ASISysCtrlA    = 0x0A
	ASISysStatus   = 0x0B
	ASICRCStatus   = 0x0C
)

// Bit positions within the CS registers.
const (
	CtrlAIBDLYBit    = 7
	CtrlBCCDETDISBit = 3
	CtrlBUPDIDISBit  = 2

	KeyStatusChipErase = 3
	KeyStatusNVMProg   = 4
	KeyStatusUROWWrite = 5

	SysStatusRstSys     = 5
	SysStatusInSleep    = 4
	SysStatusNVMProg    = 3
	SysStatusUROWProg   = 2
	SysStatusLockStatus = 0

	SysCtrlAUROWFinal = 1
)

// ResetReqValue written to ASIResetReq asserts reset; writing zero
// releases it.
const ResetReqValue = 0x59

// Activation keys. All are exactly eight bytes and are sent reversed
// (last byte first) on the wire.
const (
	KeyNVMProg   = "NVMProg "
	KeyChipErase = "NVMErase"
	KeyUserRow   = "NVMUs&te"
)

// LinkMode is the negotiated datalink addressing width. Devices with the
// version 0 NVM controller use 16-bit addressing, everything newer uses
// 24-bit.
type LinkMode int

const (
	Mode16bit LinkMode = iota
	Mode24bit
)

func (m LinkMode) String() string {
	if m == Mode24bit {
		return "24-bit"
	}
	return "16-bit"
}

// RTSMode is the DTR/RTS drive policy applied to the serial adapter.
// Some adapters use these lines to power or reset the target, so the
// operator can force them low or high for the whole session.
type RTSMode int

const (
	RTSDefault RTSMode = iota
	RTSLow
	RTSHigh
)

func (m RTSMode) String() string {
	switch m {
	case RTSLow:
		return "low"
	case RTSHigh:
		return "high"
	default:
		return "default"
	}
}
