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

package fuse

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/avrdudes/serialupdi/parts"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var session arguments.Session

// NewCommand creates a new `fuse` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "fuse <index>[=<value>]...",
		Short: "Reads and writes fuses.",
		Long: "Reads or writes individual fuses. A bare index reads the fuse, " +
			"an index=value pair writes it. Values accept decimal and 0x hexadecimal.",
		Example: "  " + os.Args[0] + " fuse -p /dev/ttyUSB0 -d attiny1614 1 5=0x16",
		Args:    cobra.MinimumNArgs(1),
		Run:     run,
	}
	session.AddToCommand(command)
	return command
}

func run(cmd *cobra.Command, args []string) {
	type request struct {
		index int
		write bool
		value byte
	}
	requests := []request{}
	for _, arg := range args {
		r := request{}
		indexPart, valuePart, found := strings.Cut(arg, "=")
		index, err := strconv.ParseUint(indexPart, 0, 8)
		if err != nil {
			logrus.Fatalf("Invalid fuse index %q", indexPart)
		}
		r.index = int(index)
		if found {
			value, err := strconv.ParseUint(valuePart, 0, 8)
			if err != nil {
				logrus.Fatalf("Invalid fuse value %q", valuePart)
			}
			r.write = true
			r.value = byte(value)
		}
		requests = append(requests, r)
	}

	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	fuses, err := p.Part().Memory(parts.KindFuses)
	if err != nil {
		logrus.Fatal(err)
	}
	for _, r := range requests {
		if r.index >= fuses.Size {
			logrus.Fatalf("Fuse %d does not exist, %s has %d fuses", r.index, p.Part().Name, fuses.Size)
		}
		address := fuses.Address + uint32(r.index)
		if r.write {
			if err := p.WriteMemory(fuses, address, []byte{r.value}); err != nil {
				logrus.Fatal(err)
			}
			fmt.Printf("Fuse %d = 0x%02X (written)\n", r.index, r.value)
		} else {
			data, err := p.ReadMemory(fuses, address, 1)
			if err != nil {
				logrus.Fatal(err)
			}
			fmt.Printf("Fuse %d = 0x%02X\n", r.index, data[0])
		}
	}
}
