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

// Package parts describes the memory layout of supported AVR devices.
// Descriptors are YAML documents, either compiled in or loaded from
// disk, and every memory kind is resolved against a closed set when
// the descriptor is parsed.
package parts

import (
	"fmt"
	"strings"

	"github.com/arduino/go-paths-helper"
	"gopkg.in/yaml.v3"
)

// Kind identifies a memory region class. The class decides how the
// session programs the region (paged flash write, fuse register write,
// read only, ...).
type Kind int

const (
	KindFlash Kind = iota
	KindEEPROM
	KindFuses
	KindUserRow
	KindLockbits
	KindSignature
)

var kindNames = map[Kind]string{
	KindFlash:     "flash",
	KindEEPROM:    "eeprom",
	KindFuses:     "fuses",
	KindUserRow:   "user_row",
	KindLockbits:  "lockbits",
	KindSignature: "signature",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// UnmarshalYAML resolves the kind name against the closed set; a
// descriptor naming an unknown kind is rejected at load time rather
// than surfacing as a runtime dispatch failure.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	for kind, kindName := range kindNames {
		if kindName == strings.ToLower(name) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown memory kind %q", name)
}

// Memory is one addressable region of a part.
type Memory struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Address  uint32 `yaml:"address"`
	Size     int    `yaml:"size"`
	PageSize int    `yaml:"page_size"`
	ReadOnly bool   `yaml:"read_only"`
}

// Contains reports whether the region covers size bytes at address.
func (m *Memory) Contains(address uint32, size int) bool {
	return address >= m.Address && uint64(address)+uint64(size) <= uint64(m.Address)+uint64(m.Size)
}

// Part is the programming view of one device: the location of its
// control register blocks and its memory map.
type Part struct {
	Name       string   `yaml:"name"`
	NVMBase    uint32   `yaml:"nvm_base"`
	SyscfgBase uint32   `yaml:"syscfg_base"`
	Memories   []Memory `yaml:"memories"`
}

// Memory returns the first region of the given kind.
func (p *Part) Memory(kind Kind) (*Memory, error) {
	for i := range p.Memories {
		if p.Memories[i].Kind == kind {
			return &p.Memories[i], nil
		}
	}
	return nil, fmt.Errorf("part %s has no %s memory", p.Name, kind)
}

// MemoryByName returns the region with the given name.
func (p *Part) MemoryByName(name string) (*Memory, error) {
	for i := range p.Memories {
		if strings.EqualFold(p.Memories[i].Name, name) {
			return &p.Memories[i], nil
		}
	}
	return nil, fmt.Errorf("part %s has no memory named %q", p.Name, name)
}

// Parse decodes one descriptor document.
func Parse(data []byte) (*Part, error) {
	part := &Part{}
	if err := yaml.Unmarshal(data, part); err != nil {
		return nil, fmt.Errorf("parsing part descriptor: %w", err)
	}
	if err := part.validate(); err != nil {
		return nil, err
	}
	return part, nil
}

// LoadFile reads a descriptor from disk, for devices not compiled in.
func LoadFile(file *paths.Path) (*Part, error) {
	data, err := file.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("reading part descriptor %s: %w", file, err)
	}
	part, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", file, err)
	}
	return part, nil
}

func (p *Part) validate() error {
	if p.Name == "" {
		return fmt.Errorf("part descriptor has no name")
	}
	if p.NVMBase == 0 {
		return fmt.Errorf("part %s has no nvm_base", p.Name)
	}
	if p.SyscfgBase == 0 {
		return fmt.Errorf("part %s has no syscfg_base", p.Name)
	}
	if len(p.Memories) == 0 {
		return fmt.Errorf("part %s has no memories", p.Name)
	}
	for i := range p.Memories {
		m := &p.Memories[i]
		if m.Name == "" {
			return fmt.Errorf("part %s: memory %d has no name", p.Name, i)
		}
		if m.Size <= 0 {
			return fmt.Errorf("part %s: memory %s has no size", p.Name, m.Name)
		}
		if m.PageSize < 0 || m.PageSize > m.Size {
			return fmt.Errorf("part %s: memory %s has invalid page size %d", p.Name, m.Name, m.PageSize)
		}
	}
	return nil
}
