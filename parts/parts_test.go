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

package parts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinDescriptors(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	for _, name := range names {
		part, err := Find(name)
		require.NoError(t, err)
		require.NotZero(t, part.NVMBase)
		require.NotZero(t, part.SyscfgBase)
		flash, err := part.Memory(KindFlash)
		require.NoError(t, err)
		require.Positive(t, flash.PageSize)
		require.Zero(t, flash.Size%flash.PageSize)
	}
}

func TestFindIsCaseInsensitive(t *testing.T) {
	part, err := Find("ATtiny1614")
	require.NoError(t, err)
	require.Equal(t, "attiny1614", part.Name)

	_, err = Find("atmega328p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown device")
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
name: bogus
nvm_base: 0x1000
syscfg_base: 0x0F00
memories:
  - name: weird
    kind: mapped_io
    address: 0x4000
    size: 64
    page_size: 64
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown memory kind "mapped_io"`)
}

func TestParseValidatesGeometry(t *testing.T) {
	_, err := Parse([]byte(`
name: bogus
nvm_base: 0x1000
syscfg_base: 0x0F00
memories:
  - name: flash
    kind: flash
    address: 0x8000
    size: 0
    page_size: 64
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "has no size")
}

func TestMemoryContains(t *testing.T) {
	part, err := Find("avr128da48")
	require.NoError(t, err)
	flash, err := part.Memory(KindFlash)
	require.NoError(t, err)

	require.True(t, flash.Contains(0x800000, 512))
	require.True(t, flash.Contains(0x81FE00, 512))
	require.False(t, flash.Contains(0x81FE01, 512))
	require.False(t, flash.Contains(0x7FFFFF, 1))
}

func TestMemoryByName(t *testing.T) {
	part, err := Find("avr64ea48")
	require.NoError(t, err)

	urow, err := part.MemoryByName("user_row")
	require.NoError(t, err)
	require.Equal(t, KindUserRow, urow.Kind)

	_, err = part.MemoryByName("bootrow")
	require.Error(t, err)
}
