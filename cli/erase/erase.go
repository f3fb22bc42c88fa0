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

package erase

import (
	"fmt"
	"os"

	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	session    arguments.Session
	force      bool
	eepromOnly bool
	userRow    bool
)

// NewCommand creates a new `erase` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "erase",
		Short:   "Erases the device.",
		Long:    "Performs a chip erase. With --force a locked device is erased and unlocked through the chip erase key.",
		Example: "  " + os.Args[0] + " erase -p /dev/ttyUSB0 -d attiny1614",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	session.AddToCommand(command)
	command.Flags().BoolVar(&force, "force", false, "erase and unlock a locked device, losing its contents")
	command.Flags().BoolVar(&eepromOnly, "eeprom", false, "erase only the EEPROM")
	command.Flags().BoolVar(&userRow, "user-row", false, "erase only the user row")
	command.MarkFlagsMutuallyExclusive("eeprom", "user-row")
	return command
}

func run(cmd *cobra.Command, args []string) {
	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	switch {
	case eepromOnly:
		err = p.EraseEEPROM()
	case userRow:
		err = p.EraseUserRow()
	default:
		err = p.ChipErase(force)
	}
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Println("Erase completed")
}
