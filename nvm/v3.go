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

// v3 drives the controller of the AVR EA/EB families, which returns to
// the page buffer model but with separate buffers and commands for
// flash and EEPROM. Like v2 the command register must be returned to
// no-command after every operation.
type v3 struct {
	controller
}

// v3 NVMCTRL register offsets.
const (
	v3RegCtrlA  = 0x00
	v3RegStatus = 0x06
)

// v3 CTRLA commands.
const (
	v3CmdNone                  = 0x00
	v3CmdFlashPageWrite        = 0x04
	v3CmdFlashPageErase        = 0x08
	v3CmdFlashPageBufferClear  = 0x0F
	v3CmdEEPROMPageEraseWrite  = 0x15
	v3CmdEEPROMPageBufferClear = 0x1F
	v3CmdChipErase             = 0x20
	v3CmdEEPROMErase           = 0x30
)

// v3StatusErrorMask selects the ERROR field of the STATUS register.
const v3StatusErrorMask = 0x70

func (n *v3) WaitReady() error {
	return n.waitReadyAt(v3RegStatus, v3StatusErrorMask)
}

// ChipErase erases the device and then clears the EEPROM page buffer,
// which the erase leaves in an undefined state.
func (n *v3) ChipErase() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v3CmdChipErase); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	// The erase command must be retired before the buffer clear is
	// issued or the controller flags a command collision.
	if err := n.command(v3CmdNone); err != nil {
		return err
	}
	if err := n.command(v3CmdEEPROMPageBufferClear); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v3CmdNone)
}

// EraseFlashPage erases the page containing address. The erase command
// acts on the last written location, so the page is touched with a
// dummy byte first.
func (n *v3) EraseFlashPage(address uint32) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.dummyWrite(address); err != nil {
		return err
	}
	if err := n.command(v3CmdFlashPageErase); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v3CmdNone)
}

func (n *v3) EraseEEPROM() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v3CmdEEPROMErase); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v3CmdNone)
}

// EraseUserRow erases the user row page; on this revision the user row
// is flash backed. The size is implied by the page geometry.
func (n *v3) EraseUserRow(address uint32, size int) error {
	return n.EraseFlashPage(address)
}

func (n *v3) WriteFlash(address uint32, data []byte) error {
	return n.write(address, data, v3CmdFlashPageBufferClear, v3CmdFlashPageWrite, true)
}

func (n *v3) WriteEEPROM(address uint32, data []byte) error {
	return n.write(address, data, v3CmdEEPROMPageBufferClear, v3CmdEEPROMPageEraseWrite, false)
}

// WriteUserRow writes the user row as flash.
func (n *v3) WriteUserRow(address uint32, data []byte) error {
	return n.WriteFlash(address, data)
}

// WriteFuse writes one fuse through the EEPROM path.
func (n *v3) WriteFuse(address uint32, value byte) error {
	return n.WriteEEPROM(address, []byte{value})
}

// write clears the relevant page buffer, fills it and commits it, then
// returns the controller to no-command.
func (n *v3) write(address uint32, data []byte, clear, commit byte, wordAccess bool) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(clear); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.writeBuffer(address, data, wordAccess); err != nil {
		return err
	}
	if err := n.command(commit); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v3CmdNone)
}
