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
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed descriptors/*.yaml
var descriptors embed.FS

var (
	builtinOnce sync.Once
	builtin     map[string]*Part
	builtinErr  error
)

func loadBuiltin() {
	builtin = map[string]*Part{}
	entries, err := descriptors.ReadDir("descriptors")
	if err != nil {
		builtinErr = err
		return
	}
	for _, entry := range entries {
		data, err := descriptors.ReadFile("descriptors/" + entry.Name())
		if err != nil {
			builtinErr = err
			return
		}
		part, err := Parse(data)
		if err != nil {
			builtinErr = fmt.Errorf("in %s: %w", entry.Name(), err)
			return
		}
		builtin[strings.ToLower(part.Name)] = part
	}
}

// Find returns the compiled-in descriptor for the named device.
func Find(name string) (*Part, error) {
	builtinOnce.Do(loadBuiltin)
	if builtinErr != nil {
		return nil, builtinErr
	}
	part, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown device %q, supported devices: %s", name, strings.Join(Names(), ", "))
	}
	return part, nil
}

// Names lists the compiled-in devices in alphabetical order.
func Names() []string {
	builtinOnce.Do(loadBuiltin)
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
