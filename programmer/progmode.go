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
	"errors"

	"github.com/avrdudes/serialupdi/updi"
	"github.com/sirupsen/logrus"
)

// ErrLocked reports that the device refused programming mode because
// its lock bits are set. A chip erase through Unlock is the only way
// in.
var ErrLocked = errors.New("device is locked, perform a chip erase to unlock it")

func isLocked(err error) bool { return errors.Is(err, ErrLocked) }

// EnterProgMode unlocks NVM programming with the NVMPROG key and a
// reset cycle. If the device is already in programming mode nothing is
// sent.
func (p *Programmer) EnterProgMode() error {
	status, err := p.link.ReadCS(updi.ASISysStatus)
	if err != nil {
		return err
	}
	if status&(1<<updi.SysStatusNVMProg) != 0 {
		logrus.Debug("Already in programming mode")
		p.inProgMode = true
		return nil
	}

	// The key is presented while the device is held in reset and only
	// latches when the reset is released.
	if err := p.sendReset(true); err != nil {
		return err
	}
	if err := p.writeKey("enter progmode", updi.KeyNVMProg, updi.KeyStatusNVMProg); err != nil {
		p.sendReset(false)
		return err
	}
	if err := p.sendReset(false); err != nil {
		return err
	}
	if err := p.waitSysStatus(updi.SysStatusLockStatus, false, p.lockedTimeout, "enter progmode"); err != nil {
		if updi.IsTimeout(err) {
			return ErrLocked
		}
		return err
	}
	if err := p.waitSysStatus(updi.SysStatusNVMProg, true, p.progmodeTimeout, "enter progmode"); err != nil {
		return err
	}
	logrus.Debug("Entered programming mode")
	p.inProgMode = true
	return nil
}

// LeaveProgMode resets the device out of programming mode and disables
// the UPDI interface so the application code starts running.
func (p *Programmer) LeaveProgMode() error {
	if err := p.toggleReset(); err != nil {
		return err
	}
	p.inProgMode = false
	return p.link.WriteCS(updi.CSCtrlB,
		(1<<updi.CtrlBUPDIDISBit)|(1<<updi.CtrlBCCDETDISBit))
}

// Unlock erases a locked device with the chip erase key and re-enters
// programming mode. All memories are lost.
func (p *Programmer) Unlock() error {
	if err := p.link.WriteKey(updi.Key64, []byte(updi.KeyChipErase)); err != nil {
		return err
	}
	keyStatus, err := p.link.ReadCS(updi.ASIKeyStatus)
	if err != nil {
		return err
	}
	// The unlock erase is destructive, so here a missing key
	// acknowledge is fatal regardless of the key check policy.
	if keyStatus&(1<<updi.KeyStatusChipErase) == 0 {
		return updi.KeyRejectedError("unlock")
	}
	if err := p.toggleReset(); err != nil {
		return err
	}
	if err := p.waitSysStatus(updi.SysStatusLockStatus, false, p.unlockTimeout, "unlock"); err != nil {
		return err
	}
	// The erase drops the link; bring it back up before continuing.
	if err := p.link.Init(); err != nil {
		return err
	}
	logrus.Info("Device unlocked")
	return p.EnterProgMode()
}

// ChipErase erases the full device through the NVM controller. On a
// locked device it fails unless force is set, in which case the
// key-based unlock erase is used instead.
func (p *Programmer) ChipErase(force bool) error {
	if !p.inProgMode {
		err := p.EnterProgMode()
		if isLocked(err) && force {
			logrus.Warn("Device is locked, erasing with the chip erase key")
			return p.Unlock()
		}
		if err != nil {
			return err
		}
	}
	if err := p.nvm.ChipErase(); err != nil {
		return err
	}
	return p.nvm.WaitReady()
}

// writeKey sends a 64-bit activation key and checks its acknowledge
// bit in the key status register. Under the default lenient policy a
// missing acknowledge is only logged; the later system status checks
// catch real failures.
func (p *Programmer) writeKey(op, key string, statusBit uint) error {
	if err := p.link.WriteKey(updi.Key64, []byte(key)); err != nil {
		return err
	}
	keyStatus, err := p.link.ReadCS(updi.ASIKeyStatus)
	if err != nil {
		return err
	}
	if keyStatus&(1<<statusBit) == 0 {
		if p.strictKeyCheck {
			return updi.KeyRejectedError(op)
		}
		logrus.Warnf("Key not acknowledged (key status 0x%02X), continuing", keyStatus)
	}
	return nil
}
