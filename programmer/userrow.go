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

// WriteUserRowLocked writes the complete user row of a locked device
// through the user row write key, without unlocking or erasing
// anything. The data must cover the whole row. The device stays
// locked afterwards.
func (p *Programmer) WriteUserRowLocked(data []byte) error {
	urow, err := p.part.Memory(parts.KindUserRow)
	if err != nil {
		return err
	}
	if len(data) != urow.Size {
		return fmt.Errorf("user row write needs exactly %d bytes, got %d", urow.Size, len(data))
	}

	if err := p.link.WriteKey(updi.Key64, []byte(updi.KeyUserRow)); err != nil {
		return err
	}
	keyStatus, err := p.link.ReadCS(updi.ASIKeyStatus)
	if err != nil {
		return err
	}
	// Without the key the reset below would just restart the
	// application, so a missing acknowledge is fatal here regardless
	// of the key check policy.
	if keyStatus&(1<<updi.KeyStatusUROWWrite) == 0 {
		return updi.KeyRejectedError("user row write")
	}
	if err := p.toggleReset(); err != nil {
		return err
	}
	if err := p.waitSysStatus(updi.SysStatusUROWProg, true, p.urowTimeout, "user row write"); err != nil {
		return err
	}

	// In user row programming mode the row is written directly, the
	// NVM controller is not involved.
	if err := p.link.WriteData(urow.Address, data); err != nil {
		return err
	}

	// Commit and wait for the device to finish. The clock request
	// detector stays disabled through the final phase.
	final := byte(1<<updi.SysCtrlAUROWFinal) | (1 << updi.CtrlBCCDETDISBit)
	if err := p.link.WriteCS(updi.ASISysCtrlA, final); err != nil {
		return err
	}
	if err := p.waitSysStatus(updi.SysStatusUROWProg, false, p.urowTimeout, "user row write"); err != nil {
		// Reset anyway so the device does not stay stuck in user row
		// programming mode.
		p.toggleReset()
		return err
	}

	// Writing the acknowledge bit clears it.
	ack := byte(1<<updi.KeyStatusUROWWrite) | (1 << updi.CtrlBCCDETDISBit)
	if err := p.link.WriteCS(updi.ASIKeyStatus, ack); err != nil {
		return err
	}
	if err := p.toggleReset(); err != nil {
		return err
	}

	// The write dropped the link, so re-establish the session. The
	// device is still locked and refusing programming mode is expected.
	if err := p.resetConnection(); err != nil {
		return err
	}
	if err := p.EnterProgMode(); err != nil && !isLocked(err) {
		return err
	}
	logrus.Info("User row written, device remains locked")
	return nil
}
