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

import (
	"fmt"
	"testing"
	"time"

	"github.com/avrdudes/serialupdi/updi"
	"github.com/stretchr/testify/require"
)

const testBase = 0x1000

// fakeReadWriter records every access in order and replays scripted
// status reads.
type fakeReadWriter struct {
	ops      []string
	statuses []byte
	reads    int
}

func (f *fakeReadWriter) ReadByte(address uint32) (byte, error) {
	f.ops = append(f.ops, fmt.Sprintf("rd %04X", address))
	var status byte
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	f.reads++
	return status, nil
}

func (f *fakeReadWriter) WriteByte(address uint32, value byte) error {
	f.ops = append(f.ops, fmt.Sprintf("wr %04X %02X", address, value))
	return nil
}

func (f *fakeReadWriter) WriteData(address uint32, data []byte) error {
	f.ops = append(f.ops, fmt.Sprintf("data %04X %d", address, len(data)))
	return nil
}

func (f *fakeReadWriter) WriteDataWords(address uint32, data []byte) error {
	f.ops = append(f.ops, fmt.Sprintf("words %04X %d", address, len(data)))
	return nil
}

func newTestController(t *testing.T, version Version) (Controller, *fakeReadWriter) {
	t.Helper()
	fake := &fakeReadWriter{}
	ctrl := New(version, fake, testBase)
	switch c := ctrl.(type) {
	case *v0:
		c.readyTimeout = 50 * time.Millisecond
	case *v2:
		c.readyTimeout = 50 * time.Millisecond
	case *v3:
		c.readyTimeout = 50 * time.Millisecond
	}
	return ctrl, fake
}

func TestVersionForSIB(t *testing.T) {
	version, mode, err := VersionForSIB('0')
	require.NoError(t, err)
	require.Equal(t, V0, version)
	require.Equal(t, updi.Mode16bit, mode)

	version, mode, err = VersionForSIB('2')
	require.NoError(t, err)
	require.Equal(t, V2, version)
	require.Equal(t, updi.Mode24bit, mode)

	version, mode, err = VersionForSIB('3')
	require.NoError(t, err)
	require.Equal(t, V3, version)
	require.Equal(t, updi.Mode24bit, mode)

	// '4' and '5' are newer silicon with v2 and v3 command sets.
	version, _, err = VersionForSIB('4')
	require.NoError(t, err)
	require.Equal(t, V2, version)
	version, _, err = VersionForSIB('5')
	require.NoError(t, err)
	require.Equal(t, V3, version)

	_, _, err = VersionForSIB('9')
	require.Error(t, err)
	require.True(t, updi.IsCapability(err))
}

func TestWaitReady(t *testing.T) {
	ctrl, fake := newTestController(t, V0)

	// Idle straight away.
	fake.statuses = []byte{0x00}
	require.NoError(t, ctrl.WaitReady())
	require.Equal(t, 1, fake.reads)

	// Busy for a few polls, then idle.
	fake.statuses = []byte{0x03, 0x01, 0x00}
	fake.reads = 0
	require.NoError(t, ctrl.WaitReady())
	require.Equal(t, 3, fake.reads)

	// A set write-error bit fails immediately instead of polling on.
	fake.statuses = []byte{1 << 2}
	fake.reads = 0
	err := ctrl.WaitReady()
	require.Error(t, err)
	require.True(t, updi.IsCapability(err))
	require.Equal(t, 1, fake.reads)

	// Stuck busy times out.
	fake.statuses = []byte{0x01}
	err = ctrl.WaitReady()
	require.Error(t, err)
	require.True(t, updi.IsTimeout(err))
}

func TestV0EraseFlashPage(t *testing.T) {
	ctrl, fake := newTestController(t, V0)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.EraseFlashPage(0x8040))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
		"data 8040 1",
		fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdErasePage),
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
	}, fake.ops)
}

func TestV0WriteFlash(t *testing.T) {
	ctrl, fake := newTestController(t, V0)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteFlash(0x8000, make([]byte, 64)))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdPageBufferClr),
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
		"words 8000 64",
		fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdWritePage),
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
	}, fake.ops)
}

func TestV0WriteEEPROMUsesByteAccess(t *testing.T) {
	ctrl, fake := newTestController(t, V0)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteEEPROM(0x1400, make([]byte, 32)))
	require.Contains(t, fake.ops, "data 1400 32")
	require.Contains(t, fake.ops, fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdEraseWritePage))
}

func TestV0WriteFuse(t *testing.T) {
	ctrl, fake := newTestController(t, V0)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteFuse(0x1282, 0x5A))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v0RegAddrL, 0x82),
		fmt.Sprintf("wr %04X %02X", testBase+v0RegAddrH, 0x12),
		fmt.Sprintf("wr %04X %02X", testBase+v0RegDataL, 0x5A),
		fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdWriteFuse),
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
	}, fake.ops)
}

func TestV2WriteFlashArmsCommandFirst(t *testing.T) {
	ctrl, fake := newTestController(t, V2)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteFlash(0x800000, make([]byte, 512)))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v2RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v2RegCtrlA, v2CmdFlashWrite),
		"words 800000 512",
		fmt.Sprintf("rd %04X", testBase+v2RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v2RegCtrlA, v2CmdNone),
	}, fake.ops)
}

func TestV2EraseFlashPage(t *testing.T) {
	ctrl, fake := newTestController(t, V2)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.EraseFlashPage(0x800200))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v2RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v2RegCtrlA, v2CmdFlashPageErase),
		"data 800200 1",
		fmt.Sprintf("rd %04X", testBase+v2RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v2RegCtrlA, v2CmdNone),
	}, fake.ops)
}

func TestV2FuseGoesThroughEEPROM(t *testing.T) {
	ctrl, fake := newTestController(t, V2)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteFuse(0x1050, 0xC8))
	require.Contains(t, fake.ops, fmt.Sprintf("wr %04X %02X", testBase+v2RegCtrlA, v2CmdEEPROMEraseWrite))
	require.Contains(t, fake.ops, "data 1050 1")
}

func TestV3ChipEraseClearsEEPROMPageBuffer(t *testing.T) {
	ctrl, fake := newTestController(t, V3)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.ChipErase())
	// The erase must be retired with a no-command before the buffer
	// clear goes out.
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdChipErase),
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdNone),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdEEPROMPageBufferClear),
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdNone),
	}, fake.ops)
}

func TestV3WriteEEPROM(t *testing.T) {
	ctrl, fake := newTestController(t, V3)
	fake.statuses = []byte{0x00}

	require.NoError(t, ctrl.WriteEEPROM(0x1400, make([]byte, 8)))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdEEPROMPageBufferClear),
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		"data 1400 8",
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdEEPROMPageEraseWrite),
		fmt.Sprintf("rd %04X", testBase+v3RegStatus),
		fmt.Sprintf("wr %04X %02X", testBase+v3RegCtrlA, v3CmdNone),
	}, fake.ops)
}

func TestV0EraseUserRowTouchesEveryByte(t *testing.T) {
	ctrl, fake := newTestController(t, V0)
	fake.statuses = []byte{0x00}

	// The page erase only covers locations written since the last
	// commit, so each byte gets a dummy write before the command.
	require.NoError(t, ctrl.EraseUserRow(0x1300, 4))
	require.Equal(t, []string{
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
		"data 1300 1",
		"data 1301 1",
		"data 1302 1",
		"data 1303 1",
		fmt.Sprintf("wr %04X %02X", testBase+v0RegCtrlA, v0CmdErasePage),
		fmt.Sprintf("rd %04X", testBase+v0RegStatus),
	}, fake.ops)
}
