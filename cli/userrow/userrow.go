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

package userrow

import (
	"fmt"
	"os"

	"github.com/arduino/go-paths-helper"
	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/avrdudes/serialupdi/parts"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	session   arguments.Session
	inputFile string
)

// NewCommand creates a new `user-row` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "user-row",
		Short: "Writes the user row.",
		Long: "Writes the given binary file to the user row. On a locked device the write " +
			"goes through the user row write key, the file must then cover the whole row " +
			"and the device stays locked.",
		Example: "  " + os.Args[0] + " user-row -p /dev/ttyUSB0 -d attiny1614 -i userrow.bin",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	session.AddToCommand(command)
	command.Flags().StringVarP(&inputFile, "input", "i", "", "binary file to write to the user row")
	command.MarkFlagRequired("input")
	return command
}

func run(cmd *cobra.Command, args []string) {
	data, err := paths.New(inputFile).ReadFile()
	if err != nil {
		logrus.Fatal(err)
	}

	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	urow, err := p.Part().Memory(parts.KindUserRow)
	if err != nil {
		logrus.Fatal(err)
	}

	if p.InProgMode() {
		if err := p.WriteMemory(urow, urow.Address, data); err != nil {
			logrus.Fatal(err)
		}
	} else {
		logrus.Info("Device is locked, writing the user row with the user row key")
		if err := p.WriteUserRowLocked(data); err != nil {
			logrus.Fatal(err)
		}
	}
	fmt.Printf("Wrote %d bytes to the user row\n", len(data))
}
