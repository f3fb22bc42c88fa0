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

// v2 drives the word-oriented controller of the AVR DA/DB/DD families.
// There is no page buffer: the write command is armed in CTRLA first
// and the data poured in afterwards, then the command register is
// returned to no-command. The user row is plain flash on this
// revision, and fuses are written like EEPROM.
type v2 struct {
	controller
}

// v2 NVMCTRL register offsets.
const (
	v2RegCtrlA  = 0x00
	v2RegStatus = 0x02
)

// v2 CTRLA commands.
const (
	v2CmdNone             = 0x00
	v2CmdFlashWrite       = 0x02
	v2CmdFlashPageErase   = 0x08
	v2CmdEEPROMEraseWrite = 0x13
	v2CmdChipErase        = 0x20
	v2CmdEEPROMErase      = 0x30
)

// v2StatusErrorMask selects the ERROR field of the STATUS register.
const v2StatusErrorMask = 0x30

func (n *v2) WaitReady() error {
	return n.waitReadyAt(v2RegStatus, v2StatusErrorMask)
}

func (n *v2) ChipErase() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v2CmdChipErase); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v2CmdNone)
}

// EraseFlashPage arms the page erase command, then touches the page
// with a dummy byte to trigger it.
func (n *v2) EraseFlashPage(address uint32) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v2CmdFlashPageErase); err != nil {
		return err
	}
	if err := n.dummyWrite(address); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v2CmdNone)
}

func (n *v2) EraseEEPROM() error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(v2CmdEEPROMErase); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v2CmdNone)
}

// EraseUserRow erases the user row page; on this revision the user row
// is ordinary flash. The size is implied by the flash page geometry.
func (n *v2) EraseUserRow(address uint32, size int) error {
	return n.EraseFlashPage(address)
}

func (n *v2) WriteFlash(address uint32, data []byte) error {
	return n.write(address, data, v2CmdFlashWrite, true)
}

func (n *v2) WriteEEPROM(address uint32, data []byte) error {
	return n.write(address, data, v2CmdEEPROMEraseWrite, false)
}

// WriteUserRow writes the user row as flash.
func (n *v2) WriteUserRow(address uint32, data []byte) error {
	return n.WriteFlash(address, data)
}

// WriteFuse writes one fuse; on this revision fuses live in the EEPROM
// address space and take the EEPROM erase-and-write command.
func (n *v2) WriteFuse(address uint32, value byte) error {
	return n.WriteEEPROM(address, []byte{value})
}

// write arms the command in CTRLA, pours the data in and then returns
// the controller to no-command.
func (n *v2) write(address uint32, data []byte, command byte, wordAccess bool) error {
	if err := n.WaitReady(); err != nil {
		return err
	}
	if err := n.command(command); err != nil {
		return err
	}
	if err := n.writeBuffer(address, data, wordAccess); err != nil {
		return err
	}
	if err := n.WaitReady(); err != nil {
		return err
	}
	return n.command(v2CmdNone)
}
