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
	"fmt"
	"strings"
)

// SIBLength is the size of the System Information Block read from the
// target.
const SIBLength = 32

// Fixed substring layout of the raw SIB.
const (
	sibFamilyLength = 8
	sibNVMOffset    = 8
	sibNVMLength    = 3
	sibDebugOffset  = 11
	sibDebugLength  = 3
	sibPDIOffset    = 15
	sibPDILength    = 4
	sibExtraOffset  = 19
)

// SIB holds the decoded System Information Block. The NVM and debug
// descriptors each carry a colon-delimited version character which
// drives controller selection and addressing width for the whole
// session.
type SIB struct {
	Raw    []byte
	Family string
	NVM    string
	Debug  string
	PDI    string
	Extra  string

	NVMVersion   byte
	DebugVersion byte
}

// DecodeSIB parses a raw SIB. A malformed descriptor (missing colon) is
// a capability error: the NVM version must never be guessed.
func DecodeSIB(raw []byte) (*SIB, error) {
	if len(raw) < SIBLength {
		return nil, CapabilityError("decode sib", "short SIB: %d bytes", len(raw))
	}
	sib := &SIB{
		Raw:    append([]byte(nil), raw[:SIBLength]...),
		Family: string(raw[:sibFamilyLength]),
		NVM:    string(raw[sibNVMOffset : sibNVMOffset+sibNVMLength]),
		Debug:  string(raw[sibDebugOffset : sibDebugOffset+sibDebugLength]),
		PDI:    string(raw[sibPDIOffset : sibPDIOffset+sibPDILength]),
		Extra:  strings.TrimRight(string(raw[sibExtraOffset:SIBLength]), "\x00 "),
	}

	i := strings.IndexByte(sib.NVM, ':')
	if i < 0 || i+1 >= len(sib.NVM) {
		return nil, CapabilityError("decode sib", "malformed NVM descriptor %q", sib.NVM)
	}
	sib.NVMVersion = sib.NVM[i+1]

	i = strings.IndexByte(sib.Debug, ':')
	if i < 0 || i+1 >= len(sib.Debug) {
		return nil, CapabilityError("decode sib", "malformed debug descriptor %q", sib.Debug)
	}
	sib.DebugVersion = sib.Debug[i+1]

	return sib, nil
}

// FamilyName returns the family identifier without padding.
func (s *SIB) FamilyName() string {
	return strings.TrimRight(s.Family, " ")
}

func (s *SIB) String() string {
	return fmt.Sprintf("family %q, NVM %q (version %c), debug %q (version %c), PDI %q, extra %q",
		s.FamilyName(), s.NVM, s.NVMVersion, s.Debug, s.DebugVersion, s.PDI, s.Extra)
}
