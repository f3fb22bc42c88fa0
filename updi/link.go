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

package updi

import (
	"github.com/sirupsen/logrus"
)

// Link is the UPDI datalink layer: it frames control/status and memory
// load/store operations on top of a Transport and owns the negotiated
// addressing width.
type Link struct {
	tr   Transport
	mode LinkMode
}

// NewLink wraps tr. The addressing width starts at 16 bits; it widens to
// 24 bits once a SIB read reveals a device that needs it.
func NewLink(tr Transport) *Link {
	return &Link{tr: tr, mode: Mode16bit}
}

// Mode returns the addressing width in effect.
func (l *Link) Mode() LinkMode { return l.mode }

// SetMode sets the addressing width for all subsequent direct loads,
// stores and pointer writes.
func (l *Link) SetMode(mode LinkMode) { l.mode = mode }

// Init puts the datalink into a known state: collision detection off,
// inter-byte delay on, then verifies the target answers a STATUSA read.
// A failed check triggers exactly one double break and one more attempt;
// a second failure is final at this layer.
func (l *Link) Init() error {
	if err := l.initSessionParameters(); err != nil {
		return err
	}
	if err := l.check(); err == nil {
		return nil
	}
	logrus.Debug("Datalink not active, sending double break")
	if err := l.tr.DoubleBreak(); err != nil {
		return err
	}
	if err := l.initSessionParameters(); err != nil {
		return err
	}
	if err := l.check(); err != nil {
		return framingError("link init", "datalink inactive after double break")
	}
	return nil
}

// initSessionParameters disables collision detection and enables the
// inter-byte delay.
func (l *Link) initSessionParameters() error {
	if err := l.STCS(CSCtrlB, 1<<CtrlBCCDETDISBit); err != nil {
		return err
	}
	return l.STCS(CSCtrlA, 1<<CtrlAIBDLYBit)
}

// check loads STATUSA; a non-zero value means the datalink is alive.
func (l *Link) check() error {
	value, err := l.LDCS(CSStatusA)
	if err != nil {
		return err
	}
	if value == 0 {
		return framingError("link check", "STATUSA reads zero")
	}
	return nil
}

// LDCS loads one byte from the control/status space. The response is
// exactly one byte; anything else is a framing violation.
func (l *Link) LDCS(address uint8) (byte, error) {
	logrus.Debugf("LDCS from 0x%02X", address)
	if err := l.tr.Send([]byte{PhySync, OpLDCS | (address & 0x0F)}); err != nil {
		return 0, err
	}
	resp, err := l.tr.Recv(1)
	if err != nil {
		return 0, err
	}
	if len(resp) != 1 {
		return 0, framingError("ldcs", "unexpected response length %d, want 1", len(resp))
	}
	return resp[0], nil
}

// STCS stores one byte to the control/status space. STCS frames are not
// acknowledged.
func (l *Link) STCS(address uint8, value byte) error {
	logrus.Debugf("STCS 0x%02X to 0x%02X", value, address)
	return l.tr.Send([]byte{PhySync, OpSTCS | (address & 0x0F), value})
}

// addressBytes encodes address little-endian at the width in effect.
func (l *Link) addressBytes(address uint32) []byte {
	if l.mode == Mode24bit {
		return []byte{byte(address), byte(address >> 8), byte(address >> 16)}
	}
	return []byte{byte(address), byte(address >> 8)}
}

func (l *Link) addressWidthBit() byte {
	if l.mode == Mode24bit {
		return Address24
	}
	return Address16
}

func (l *Link) ptrDataBit() byte {
	if l.mode == Mode24bit {
		return Data24
	}
	return Data16
}

// LD loads a single byte from an explicit address.
func (l *Link) LD(address uint32) (byte, error) {
	logrus.Debugf("LD from 0x%06X", address)
	frame := append([]byte{PhySync, OpLDS | l.addressWidthBit() | Data8}, l.addressBytes(address)...)
	if err := l.tr.Send(frame); err != nil {
		return 0, err
	}
	resp, err := l.tr.Recv(1)
	if err != nil {
		return 0, err
	}
	if len(resp) != 1 {
		return 0, framingError("ld", "unexpected response length %d, want 1", len(resp))
	}
	return resp[0], nil
}

// LD16 loads a 16-bit word (little-endian on the wire) from an explicit
// address.
func (l *Link) LD16(address uint32) (uint16, error) {
	logrus.Debugf("LD16 from 0x%06X", address)
	frame := append([]byte{PhySync, OpLDS | l.addressWidthBit() | Data16}, l.addressBytes(address)...)
	if err := l.tr.Send(frame); err != nil {
		return 0, err
	}
	resp, err := l.tr.Recv(2)
	if err != nil {
		return 0, err
	}
	if len(resp) != 2 {
		return 0, framingError("ld16", "unexpected response length %d, want 2", len(resp))
	}
	return uint16(resp[0]) | uint16(resp[1])<<8, nil
}

// recvAck consumes one response byte and demands it be the ACK.
func (l *Link) recvAck(op string) error {
	resp, err := l.tr.Recv(1)
	if err != nil {
		return err
	}
	if len(resp) != 1 || resp[0] != PhyAck {
		return framingError(op, "expected ACK, got % X", resp)
	}
	return nil
}

// stDataPhase runs the data phase of a store: wait for the ACK to the
// address, send the payload, wait for the ACK to the payload.
func (l *Link) stDataPhase(op string, data []byte) error {
	if err := l.recvAck(op); err != nil {
		return err
	}
	if err := l.tr.Send(data); err != nil {
		return err
	}
	return l.recvAck(op)
}

// ST stores a single byte to an explicit address.
func (l *Link) ST(address uint32, value byte) error {
	logrus.Debugf("ST 0x%02X to 0x%06X", value, address)
	frame := append([]byte{PhySync, OpSTS | l.addressWidthBit() | Data8}, l.addressBytes(address)...)
	if err := l.tr.Send(frame); err != nil {
		return err
	}
	return l.stDataPhase("st", []byte{value})
}

// ST16 stores a 16-bit word (little-endian) to an explicit address.
func (l *Link) ST16(address uint32, value uint16) error {
	logrus.Debugf("ST16 0x%04X to 0x%06X", value, address)
	frame := append([]byte{PhySync, OpSTS | l.addressWidthBit() | Data16}, l.addressBytes(address)...)
	if err := l.tr.Send(frame); err != nil {
		return err
	}
	return l.stDataPhase("st16", []byte{byte(value), byte(value >> 8)})
}

// STPtr sets the target's pointer register. The write must be ACKed.
func (l *Link) STPtr(address uint32) error {
	logrus.Debugf("ST ptr to 0x%06X", address)
	frame := append([]byte{PhySync, OpST | PtrAddress | l.ptrDataBit()}, l.addressBytes(address)...)
	if err := l.tr.Send(frame); err != nil {
		return err
	}
	return l.recvAck("st_ptr")
}

// LDPtrInc loads size bytes from the pointer with post-increment. The
// caller must have issued Repeat first for size > 1.
func (l *Link) LDPtrInc(size int) ([]byte, error) {
	logrus.Debugf("LD8 from ptr++, %d bytes", size)
	if err := l.tr.Send([]byte{PhySync, OpLD | PtrInc | Data8}); err != nil {
		return nil, err
	}
	resp, err := l.tr.Recv(size)
	if err != nil {
		return nil, err
	}
	if len(resp) != size {
		return nil, framingError("ld_ptr_inc", "short burst: got %d of %d bytes", len(resp), size)
	}
	return resp, nil
}

// LDPtrInc16 loads words 16-bit values from the pointer with
// post-increment.
func (l *Link) LDPtrInc16(words int) ([]byte, error) {
	logrus.Debugf("LD16 from ptr++, %d words", words)
	if err := l.tr.Send([]byte{PhySync, OpLD | PtrInc | Data16}); err != nil {
		return nil, err
	}
	size := words * 2
	resp, err := l.tr.Recv(size)
	if err != nil {
		return nil, err
	}
	if len(resp) != size {
		return nil, framingError("ld_ptr_inc16", "short burst: got %d of %d bytes", len(resp), size)
	}
	return resp, nil
}

// STPtrInc stores data byte-wise to the pointer with post-increment.
// The opcode frame carries the first byte; every byte is individually
// ACKed and a missing ACK aborts the whole burst.
func (l *Link) STPtrInc(data []byte) error {
	logrus.Debugf("ST8 to ptr++, %d bytes", len(data))
	if len(data) == 0 {
		return framingError("st_ptr_inc", "empty burst")
	}
	if err := l.tr.Send([]byte{PhySync, OpST | PtrInc | Data8, data[0]}); err != nil {
		return err
	}
	if err := l.recvAck("st_ptr_inc"); err != nil {
		return err
	}
	for _, b := range data[1:] {
		if err := l.tr.Send([]byte{b}); err != nil {
			return err
		}
		if err := l.recvAck("st_ptr_inc"); err != nil {
			return err
		}
	}
	return nil
}

// STPtrInc16 stores data word-wise to the pointer with post-increment,
// one ACK per word.
func (l *Link) STPtrInc16(data []byte) error {
	logrus.Debugf("ST16 to ptr++, %d bytes", len(data))
	if len(data) < 2 || len(data)%2 != 0 {
		return framingError("st_ptr_inc16", "burst length %d is not word aligned", len(data))
	}
	if err := l.tr.Send([]byte{PhySync, OpST | PtrInc | Data16, data[0], data[1]}); err != nil {
		return err
	}
	if err := l.recvAck("st_ptr_inc16"); err != nil {
		return err
	}
	for i := 2; i < len(data); i += 2 {
		if err := l.tr.Send(data[i : i+2]); err != nil {
			return err
		}
		if err := l.recvAck("st_ptr_inc16"); err != nil {
			return err
		}
	}
	return nil
}

// STPtrInc16RSD stores data word-wise with the response signature
// disabled: a single glob of STCS(CTRLA, RSD on), REPEAT, the ST opcode,
// the whole payload and a closing STCS(CTRLA, RSD off) is cut into
// transport sends of at most blockSize bytes (-1 for one send). With no
// response signature there are no ACKs to collect, which collapses
// thousands of small sends into a few large ones.
func (l *Link) STPtrInc16RSD(data []byte, blockSize int) error {
	logrus.Debugf("ST16 to ptr++ with RSD, %d bytes in blocks of %d", len(data), blockSize)
	if len(data) < 2 || len(data)%2 != 0 {
		return framingError("st_ptr_inc16_rsd", "burst length %d is not word aligned", len(data))
	}
	words := len(data) / 2

	frame := make([]byte, 0, 8+len(data)+3)
	frame = append(frame,
		PhySync, OpSTCS|CSCtrlA, 0x0E, // RSD on, keep inter-byte delay
		PhySync, OpRepeat|RepeatByte, byte(words-1),
		PhySync, OpST|PtrInc|Data16)
	frame = append(frame, data...)
	frame = append(frame, PhySync, OpSTCS|CSCtrlA, 0x06) // RSD off

	if blockSize == -1 {
		blockSize = len(frame)
	}

	num := 0
	if blockSize < 10 {
		// Tiny block sizes still need the two 3-byte control frames to
		// leave in one piece.
		if err := l.tr.Send(frame[:6]); err != nil {
			return err
		}
		num = 6
	}
	for num < len(frame) {
		end := num + blockSize
		if end > len(frame) {
			end = len(frame)
		}
		if err := l.tr.Send(frame[num:end]); err != nil {
			return err
		}
		num = end
	}
	return nil
}

// Repeat arms the repeat counter for the next load/store. n must be in
// [1, MaxRepeatSize]; the counter is encoded as n-1.
func (l *Link) Repeat(n int) error {
	logrus.Debugf("Repeat %d", n)
	if n < 1 || n > MaxRepeatSize {
		return framingError("repeat", "invalid repeat count %d", n)
	}
	return l.tr.Send([]byte{PhySync, OpRepeat | RepeatByte, byte(n - 1)})
}

// ReadSIB requests the System Information Block and returns size raw
// bytes of it.
func (l *Link) ReadSIB(size int) ([]byte, error) {
	logrus.Debug("Reading SIB")
	if err := l.tr.Send([]byte{PhySync, OpKey | KeySIB | SIB32Bytes}); err != nil {
		return nil, err
	}
	resp, err := l.tr.Recv(size)
	if err != nil {
		return nil, err
	}
	if len(resp) != size {
		return nil, framingError("read_sib", "short SIB: got %d of %d bytes", len(resp), size)
	}
	return resp, nil
}

// Key writes an activation key. The key length must match the size
// class (8<<sizeClass bytes) and is transmitted reversed, unACKed.
func (l *Link) Key(sizeClass byte, key []byte) error {
	logrus.Debug("Writing key")
	if len(key) != 8<<sizeClass {
		return framingError("key", "invalid key length %d for size class %d", len(key), sizeClass)
	}
	if err := l.tr.Send([]byte{PhySync, OpKey | KeyKey | sizeClass}); err != nil {
		return err
	}
	reversed := make([]byte, len(key))
	for i, b := range key {
		reversed[len(key)-1-i] = b
	}
	return l.tr.Send(reversed)
}
