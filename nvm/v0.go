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

package nvm

// v0 drives the page-buffer based controller of the tinyAVR and
// megaAVR 0/1/2-series. Writes go through a page buffer that must be
// cleared, filled and then committed with a single command. Fuses have
// their own dedicated data/address registers.
type v0 struct {
	controller
}

// v0 NVMCTRL register offsets.
const (
	v0RegCtrlA  = 0x00
	v0RegStatus = 0x02
	v0RegDataL  = 0x06
	v0RegAddrL  = 0x08
	v0RegAddrH  = 0x09
)

// v0 CTRLA commands.
const (
	v0CmdWritePage      = 0x01
	v0CmdErasePage      = 0x02
	v0CmdEraseWritePage = 0x03
	v0CmdPageBufferClr  = 0x04
	v0CmdChipErase      = 0x05
	v0CmdEraseEEPROM    = 0x06
	v0CmdWriteFuse      = 0x07
)

// v0StatusErrorMask selects the WRERROR bit of the STATUS register.
const v0StatusErrorMask = 1 << 2

func (n *v0) WaitReady() error {
	return n.waitReadyAt(v0RegStatus, v0StatusErrorMask)
}

func (n *v0) ChipErase() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v0CmdChipErase); err != nil {
		return err
	}
	return n.WaitReady()
}

// EraseFlashPage erases the page containing address. The erase command
// acts on the last written location, so the page is touched with a
// dummy byte first.
func (n *v0) EraseFlashPage(address uint32) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.dummyWrite(address); err != nil {
		return err
	}
	if err := n.command(v0CmdErasePage); err != nil {
		return err
	}
	return n.WaitReady()
}

func (n *v0) EraseEEPROM() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v0CmdEraseEEPROM); err != nil {
		return err
	}
	return n.WaitReady()
}

// EraseUserRow erases the user row with the page erase command. The
// erase only covers locations that were written since the last commit,
// so every byte of the row is touched with a dummy write first.
func (n *v0) EraseUserRow(address uint32, size int) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if err := n.dummyWrite(address + uint32(i)); err != nil {
			return err
		}
	}
	if err := n.command(v0CmdErasePage); err != nil {
		return err
	}
	return n.WaitReady()
}

func (n *v0) WriteFlash(address uint32, data []byte) error {
	return n.write(address, data, v0CmdWritePage, true)
}

func (n *v0) WriteEEPROM(address uint32, data []byte) error {
	return n.write(address, data, v0CmdEraseWritePage, false)
}

// WriteUserRow writes the user row, which on this revision is EEPROM
// backed and takes the erase-and-write sequence.
func (n *v0) WriteUserRow(address uint32, data []byte) error {
	return n.write(address, data, v0CmdEraseWritePage, false)
}

// WriteFuse writes one fuse through the controller's dedicated
// address and data registers instead of the page buffer.
func (n *v0) WriteFuse(address uint32, value byte) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.rw.WriteByte(n.base+v0RegAddrL, byte(address)); err != nil {
		return err
	}
	if err := n.rw.WriteByte(n.base+v0RegAddrH, byte(address>>8)); err != nil {
		return err
	}
	if err := n.rw.WriteByte(n.base+v0RegDataL, value); err != nil {
		return err
	}
	if err := n.command(v0CmdWriteFuse); err != nil {
		return err
	}
	return n.WaitReady()
}

// write clears the page buffer, fills it with data and commits it with
// the given command.
func (n *v0) write(address uint32, data []byte, command byte, wordAccess bool) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v0CmdPageBufferClr); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.writeBuffer(address, data, wordAccess); err != nil {
		return err
	}
	if err := n.command(command); err != nil {
		return err
	}
	return n.WaitReady()
}
