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

// Package programmer orchestrates a UPDI programming session: it owns
// the serial transport, the datalink, the decoded SIB and the NVM
// controller matching the target's silicon revision, and exposes the
// operations the command line acts on.
package programmer

import (
	"time"

	"github.com/avrdudes/serialupdi/nvm"
	"github.com/avrdudes/serialupdi/parts"
	"github.com/avrdudes/serialupdi/updi"
	"github.com/sirupsen/logrus"
)

// datalink is the slice of *updi.Link the session drives.
type datalink interface {
	Init() error
	Mode() updi.LinkMode
	SetMode(mode updi.LinkMode)
	ReadCS(address uint8) (byte, error)
	WriteCS(address uint8, value byte) error
	WriteKey(sizeClass byte, key []byte) error
	ReadSIB(size int) ([]byte, error)
	ReadByte(address uint32) (byte, error)
	WriteByte(address uint32, value byte) error
	ReadData(address uint32, size int) ([]byte, error)
	WriteData(address uint32, data []byte) error
	ReadDataWords(address uint32, words int) ([]byte, error)
	WriteDataWords(address uint32, data []byte) error
}

// Programmer is one session against one device.
type Programmer struct {
	phy  *updi.Phy
	link datalink
	part *parts.Part

	sib        *updi.SIB
	nvmVersion nvm.Version
	nvm        nvm.Controller
	siliconRev byte
	inProgMode bool

	strictKeyCheck bool

	// Wait bounds, shortened by tests.
	lockedTimeout   time.Duration
	progmodeTimeout time.Duration
	unlockTimeout   time.Duration
	urowTimeout     time.Duration
}

const (
	defaultLockedTimeout   = 100 * time.Millisecond
	defaultProgmodeTimeout = 500 * time.Millisecond
	defaultUnlockTimeout   = 500 * time.Millisecond
	defaultUrowTimeout     = 500 * time.Millisecond
)

// Open opens the serial port, wakes the UPDI interface with a break
// and builds a session on top of it. The caller still has to run
// Initialize before touching memories.
func Open(portAddress string, part *parts.Part, opts ...Option) (*Programmer, error) {
	cfg := config{baudrate: updi.DefaultBaudrate}
	for _, opt := range opts {
		opt(&cfg)
	}
	phy, err := updi.OpenPhy(portAddress, cfg.baudrate, cfg.rtsMode)
	if err != nil {
		return nil, err
	}
	// A lone break wakes the interface if the clock request detector
	// has shut it down.
	if err := phy.SendBreak(); err != nil {
		phy.Close()
		return nil, err
	}
	p := newSession(updi.NewLink(phy), part, cfg)
	p.phy = phy
	return p, nil
}

func newSession(link datalink, part *parts.Part, cfg config) *Programmer {
	return &Programmer{
		link:            link,
		part:            part,
		strictKeyCheck:  cfg.strictKeyCheck,
		lockedTimeout:   defaultLockedTimeout,
		progmodeTimeout: defaultProgmodeTimeout,
		unlockTimeout:   defaultUnlockTimeout,
		urowTimeout:     defaultUrowTimeout,
	}
}

// Initialize brings the datalink up, reads and decodes the SIB and
// instantiates the NVM controller for the detected revision. It then
// tries to enter programming mode but tolerates a locked device, so
// that read-only operations and unlock flows still get a session.
func (p *Programmer) Initialize() error {
	if err := p.link.Init(); err != nil {
		return err
	}

	status, err := p.link.ReadCS(updi.ASISysStatus)
	if err != nil {
		// One reconnection attempt before giving up; an unclean
		// previous session can leave the interface mid-frame.
		logrus.Debug("System status read failed, resetting the connection")
		if err := p.resetConnection(); err != nil {
			return err
		}
		if status, err = p.link.ReadCS(updi.ASISysStatus); err != nil {
			return err
		}
	}
	p.logSystemStatus(status)

	// A reset request left applied by a previous session keeps the
	// device in reset until released.
	if status&(1<<updi.SysStatusRstSys) != 0 {
		logrus.Debug("Releasing stuck reset")
		if err := p.sendReset(false); err != nil {
			return err
		}
	}

	// A session interrupted inside NVM or user row programming leaves
	// the device in that mode; reset and bring the link back up to get
	// a clean state.
	if status&((1<<updi.SysStatusNVMProg)|(1<<updi.SysStatusUROWProg)) != 0 {
		logrus.Debug("Device is still in a programming mode, resetting")
		if err := p.resetConnection(); err != nil {
			return err
		}
	}

	raw, err := p.link.ReadSIB(updi.SIBLength)
	if err != nil {
		logrus.Debug("SIB read failed, resetting the connection")
		if err := p.resetConnection(); err != nil {
			return err
		}
		if raw, err = p.link.ReadSIB(updi.SIBLength); err != nil {
			return err
		}
	}
	sib, err := updi.DecodeSIB(raw)
	if err != nil {
		return err
	}
	p.sib = sib
	logrus.Infof("Connected to %s (UPDI rev %s, NVM %s)", sib.FamilyName(), sib.PDI, sib.NVM)

	version, mode, err := nvm.VersionForSIB(sib.NVMVersion)
	if err != nil {
		return err
	}
	p.nvmVersion = version
	p.link.SetMode(mode)
	p.nvm = nvm.New(version, p.link, p.part.NVMBase)
	logrus.Debugf("Using NVM controller %s with %s addressing", version, mode)

	if err := p.EnterProgMode(); err != nil {
		if !updi.IsKeyRejected(err) && !isLocked(err) {
			return err
		}
		logrus.Warnf("Could not enter programming mode: %v", err)
	}

	if p.inProgMode {
		rev, err := p.link.ReadByte(p.part.SyscfgBase + 1)
		if err != nil {
			return err
		}
		p.siliconRev = rev
		logrus.Debugf("Silicon revision %c%d", 'A'+rev>>4, rev&0x0F)
	}
	return nil
}

// SIB returns the decoded System Information Block, valid after
// Initialize.
func (p *Programmer) SIB() *updi.SIB { return p.sib }

// NVMVersion returns the detected NVM controller revision.
func (p *Programmer) NVMVersion() nvm.Version { return p.nvmVersion }

// SiliconRevision returns the revision byte read from SYSCFG, valid
// after Initialize on an unlocked device.
func (p *Programmer) SiliconRevision() byte { return p.siliconRev }

// InProgMode reports whether the device accepted programming mode.
func (p *Programmer) InProgMode() bool { return p.inProgMode }

// Part returns the device descriptor the session was opened with.
func (p *Programmer) Part() *parts.Part { return p.part }

// Close leaves programming mode if it was entered and releases the
// serial port.
func (p *Programmer) Close() error {
	if p.inProgMode {
		if err := p.LeaveProgMode(); err != nil {
			logrus.Warnf("Could not leave programming mode: %v", err)
		}
	}
	if p.phy != nil {
		return p.phy.Close()
	}
	return nil
}

func (p *Programmer) logSystemStatus(status byte) {
	state := []string{}
	for _, bit := range []struct {
		pos  uint
		name string
	}{
		{updi.SysStatusRstSys, "in reset"},
		{updi.SysStatusInSleep, "sleeping"},
		{updi.SysStatusNVMProg, "NVM programming"},
		{updi.SysStatusUROWProg, "user row programming"},
		{updi.SysStatusLockStatus, "locked"},
	} {
		if status&(1<<bit.pos) != 0 {
			state = append(state, bit.name)
		}
	}
	if len(state) == 0 {
		logrus.Debugf("System status 0x%02X", status)
		return
	}
	logrus.Debugf("System status 0x%02X: %v", status, state)
}

// sendReset applies or releases the reset request.
func (p *Programmer) sendReset(apply bool) error {
	value := byte(0x00)
	if apply {
		value = updi.ResetReqValue
	}
	return p.link.WriteCS(updi.ASIResetReq, value)
}

func (p *Programmer) toggleReset() error {
	if err := p.sendReset(true); err != nil {
		return err
	}
	return p.sendReset(false)
}

// resetConnection recovers an interface in an unknown state: a reset
// cycle followed by a fresh datalink initialization.
func (p *Programmer) resetConnection() error {
	if err := p.toggleReset(); err != nil {
		return err
	}
	return p.link.Init()
}

// waitSysStatus polls the system status register until the given bit
// reaches the wanted state.
func (p *Programmer) waitSysStatus(bit uint, set bool, timeout time.Duration, op string) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := p.link.ReadCS(updi.ASISysStatus)
		if err == nil && (status&(1<<bit) != 0) == set {
			return nil
		}
		if time.Now().After(deadline) {
			return updi.TimeoutError(op, "timeout waiting for system status bit %d", bit)
		}
		time.Sleep(time.Millisecond)
	}
}
