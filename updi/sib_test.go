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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSIB(t *testing.T) {
	sib, err := DecodeSIB([]byte("megaAVR P:0D:1-P:2 M2 (01.59B14)"))
	require.NoError(t, err)
	require.Equal(t, "megaAVR ", sib.Family)
	require.Equal(t, "megaAVR", sib.FamilyName())
	require.Equal(t, "P:0", sib.NVM)
	require.Equal(t, byte('0'), sib.NVMVersion)
	require.Equal(t, "D:1", sib.Debug)
	require.Equal(t, byte('1'), sib.DebugVersion)
	require.Equal(t, "P:2 ", sib.PDI)
	require.Equal(t, "M2 (01.59B14)", sib.Extra)
}

func TestDecodeSIBAVRDx(t *testing.T) {
	sib, err := DecodeSIB([]byte("AVR     P:2D:1-M2 (01.59B14.0)  "))
	require.NoError(t, err)
	require.Equal(t, "AVR", sib.FamilyName())
	require.Equal(t, byte('2'), sib.NVMVersion)
}

func TestDecodeSIBTooShort(t *testing.T) {
	_, err := DecodeSIB([]byte("AVR P:2"))
	require.Error(t, err)
	require.True(t, IsCapability(err))
}

func TestDecodeSIBMalformedDescriptor(t *testing.T) {
	// No colon in the NVM descriptor.
	_, err := DecodeSIB([]byte("megaAVR 000D:1-P:2 M2 (01.59B14)"))
	require.Error(t, err)
	require.True(t, IsCapability(err))
}
