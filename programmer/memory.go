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

package programmer

import (
	"fmt"

	"github.com/avrdudes/serialupdi/parts"
	"github.com/avrdudes/serialupdi/updi"
	"github.com/sirupsen/logrus"
)

// ReadMemory reads size bytes from the region at the given absolute
// address. Flash is read in words, everything else in bytes; reads are
// split to fit the datalink's repeat limit.
func (p *Programmer) ReadMemory(mem *parts.Memory, address uint32, size int) ([]byte, error) {
	if !mem.Contains(address, size) {
		return nil, fmt.Errorf("read of %d bytes at 0x%06X is outside %s", size, address, mem.Name)
	}
	if !p.inProgMode {
		return nil, ErrLocked
	}
	out := make([]byte, 0, size)
	for size > 0 {
		chunk := size
		if chunk > updi.MaxRepeatSize {
			chunk = updi.MaxRepeatSize
		}
		var data []byte
		var err error
		if mem.Kind == parts.KindFlash && chunk > 1 {
			// The odd tail byte goes out as a plain byte read on the
			// next round.
			if chunk%2 != 0 {
				chunk--
			}
			data, err = p.link.ReadDataWords(address, chunk/2)
		} else {
			data, err = p.link.ReadData(address, chunk)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		address += uint32(chunk)
		size -= chunk
	}
	return out, nil
}

// WriteMemory writes data to the region at the given absolute address,
// page by page, through the NVM command sequence the region's kind
// requires. Paged regions must be written on page boundaries.
func (p *Programmer) WriteMemory(mem *parts.Memory, address uint32, data []byte) error {
	if mem.ReadOnly {
		return fmt.Errorf("memory %s is read only", mem.Name)
	}
	if !mem.Contains(address, len(data)) {
		return fmt.Errorf("write of %d bytes at 0x%06X is outside %s", len(data), address, mem.Name)
	}
	if !p.inProgMode {
		return ErrLocked
	}

	switch mem.Kind {
	case parts.KindFuses, parts.KindLockbits:
		for i, value := range data {
			if err := p.nvm.WriteFuse(address+uint32(i), value); err != nil {
				return err
			}
		}
		return nil
	case parts.KindFlash, parts.KindEEPROM, parts.KindUserRow:
		if mem.PageSize > 0 && address%uint32(mem.PageSize) != 0 {
			return fmt.Errorf("write to %s at 0x%06X is not page aligned", mem.Name, address)
		}
		return p.writePaged(mem, address, data)
	default:
		return fmt.Errorf("memory %s is not writable", mem.Name)
	}
}

func (p *Programmer) writePaged(mem *parts.Memory, address uint32, data []byte) error {
	pageSize := mem.PageSize
	if pageSize <= 0 {
		pageSize = len(data)
	}
	for len(data) > 0 {
		page := data
		if len(page) > pageSize {
			page = page[:pageSize]
		}
		logrus.Debugf("Writing %d bytes to %s at 0x%06X", len(page), mem.Name, address)
		var err error
		switch mem.Kind {
		case parts.KindFlash:
			err = p.nvm.WriteFlash(address, page)
		case parts.KindEEPROM:
			err = p.nvm.WriteEEPROM(address, page)
		case parts.KindUserRow:
			err = p.nvm.WriteUserRow(address, page)
		}
		if err != nil {
			return err
		}
		address += uint32(len(page))
		data = data[len(page):]
	}
	return p.nvm.WaitReady()
}

// EraseEEPROM erases the EEPROM without touching the flash.
func (p *Programmer) EraseEEPROM() error {
	if !p.inProgMode {
		return ErrLocked
	}
	if err := p.nvm.EraseEEPROM(); err != nil {
		return err
	}
	return p.nvm.WaitReady()
}

// EraseUserRow erases the user row of an unlocked device.
func (p *Programmer) EraseUserRow() error {
	if !p.inProgMode {
		return ErrLocked
	}
	urow, err := p.part.Memory(parts.KindUserRow)
	if err != nil {
		return err
	}
	if err := p.nvm.EraseUserRow(urow.Address, urow.Size); err != nil {
		return err
	}
	return p.nvm.WaitReady()
}

// ReadSignature reads the device signature. On a locked device the
// signature is unreadable and ErrLocked is returned.
func (p *Programmer) ReadSignature() ([]byte, error) {
	sig, err := p.part.Memory(parts.KindSignature)
	if err != nil {
		return nil, err
	}
	return p.ReadMemory(sig, sig.Address, sig.Size)
}
