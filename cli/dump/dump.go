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

package dump

import (
	"fmt"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	session    arguments.Session
	memoryName string
	outputFile string
)

// NewCommand creates a new `dump` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "dump",
		Short:   "Reads a memory out of the device.",
		Long:    "Reads a complete memory region and writes it to a file, as Intel HEX or raw binary depending on the file extension.",
		Example: "  " + os.Args[0] + " dump -p /dev/ttyUSB0 -d attiny1614 -o flash.hex",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	session.AddToCommand(command)
	command.Flags().StringVarP(&memoryName, "memory", "m", "flash", "memory region to read")
	command.Flags().StringVarP(&outputFile, "output", "o", "", "file to write, .hex/.ihex for Intel HEX, anything else for raw binary")
	command.MarkFlagRequired("output")
	return command
}

func run(cmd *cobra.Command, args []string) {
	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	mem, err := p.Part().MemoryByName(memoryName)
	if err != nil {
		logrus.Fatal(err)
	}
	data, err := p.ReadMemory(mem, mem.Address, mem.Size)
	if err != nil {
		logrus.Fatal(err)
	}

	file := paths.New(outputFile)
	ext := strings.ToLower(file.Ext())
	if ext == ".hex" || ext == ".ihex" {
		out, err := file.Create()
		if err != nil {
			logrus.Fatal(err)
		}
		defer out.Close()
		hexMem := gohex.NewMemory()
		if err := hexMem.AddBinary(0, data); err != nil {
			logrus.Fatal(err)
		}
		if err := hexMem.DumpIntelHex(out, 16); err != nil {
			logrus.Fatal(err)
		}
	} else {
		if err := file.WriteFile(data); err != nil {
			logrus.Fatal(err)
		}
	}
	fmt.Printf("Read %d bytes from %s into %s\n", len(data), mem.Name, outputFile)
}
