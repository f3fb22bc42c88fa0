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

import "github.com/sirupsen/logrus"

// NVM-agnostic convenience wrappers. These pick the cheapest datalink
// framing for a given transfer: direct load/store for one or two units,
// pointer plus repeat plus burst for anything longer. Transfers are
// bounded by the repeat counter; callers needing more must chunk.

// ReadCS reads a control/status register.
func (l *Link) ReadCS(address uint8) (byte, error) {
	return l.LDCS(address)
}

// WriteCS writes a control/status register.
func (l *Link) WriteCS(address uint8, value byte) error {
	return l.STCS(address, value)
}

// WriteKey writes an activation key.
func (l *Link) WriteKey(sizeClass byte, key []byte) error {
	return l.Key(sizeClass, key)
}

// ReadByte reads a single byte from the unified address space.
func (l *Link) ReadByte(address uint32) (byte, error) {
	return l.LD(address)
}

// WriteByte writes a single byte to the unified address space.
func (l *Link) WriteByte(address uint32, value byte) error {
	return l.ST(address, value)
}

// ReadData reads size bytes starting at address. size must not exceed
// MaxRepeatSize; the check runs before any frame is sent.
func (l *Link) ReadData(address uint32, size int) ([]byte, error) {
	logrus.Debugf("Reading %d bytes from 0x%06X", size, address)
	if size > MaxRepeatSize {
		return nil, framingError("read_data", "cannot read %d bytes in one burst (max %d)", size, MaxRepeatSize)
	}
	if err := l.STPtr(address); err != nil {
		return nil, err
	}
	if size > 1 {
		if err := l.Repeat(size); err != nil {
			return nil, err
		}
	}
	return l.LDPtrInc(size)
}

// WriteData writes data starting at address. One- and two-byte writes
// go as direct stores; longer writes burst through the pointer.
func (l *Link) WriteData(address uint32, data []byte) error {
	switch {
	case len(data) == 1:
		return l.ST(address, data[0])
	case len(data) == 2:
		if err := l.ST(address, data[0]); err != nil {
			return err
		}
		return l.ST(address+1, data[1])
	case len(data) > MaxRepeatSize:
		return framingError("write_data", "cannot write %d bytes in one burst (max %d)", len(data), MaxRepeatSize)
	}
	if err := l.STPtr(address); err != nil {
		return err
	}
	if err := l.Repeat(len(data)); err != nil {
		return err
	}
	return l.STPtrInc(data)
}

// ReadDataWords reads words 16-bit values starting at address.
func (l *Link) ReadDataWords(address uint32, words int) ([]byte, error) {
	logrus.Debugf("Reading %d words from 0x%06X", words, address)
	if words > MaxRepeatSize/2 {
		return nil, framingError("read_data_words", "cannot read %d words in one burst (max %d)", words, MaxRepeatSize/2)
	}
	if err := l.STPtr(address); err != nil {
		return nil, err
	}
	if words > 1 {
		if err := l.Repeat(words); err != nil {
			return nil, err
		}
	}
	return l.LDPtrInc16(words)
}

// WriteDataWords writes data word-wise starting at address. A single
// word goes as a direct store; longer writes use the RSD bulk burst for
// throughput.
func (l *Link) WriteDataWords(address uint32, data []byte) error {
	if len(data) == 2 {
		return l.ST16(address, uint16(data[0])|uint16(data[1])<<8)
	}
	if len(data) > MaxRepeatSize*2 {
		return framingError("write_data_words", "cannot write %d bytes in one word burst (max %d)", len(data), MaxRepeatSize*2)
	}
	if err := l.STPtr(address); err != nil {
		return err
	}
	return l.STPtrInc16RSD(data, -1)
}
