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

package deviceinfo

import (
	"errors"
	"fmt"
	"os"

	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/avrdudes/serialupdi/programmer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var session arguments.Session

// NewCommand creates a new `device-info` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "device-info",
		Short:   "Prints information about the connected device.",
		Long:    "Connects to the device and prints its System Information Block, NVM controller revision and signature.",
		Example: "  " + os.Args[0] + " device-info -p /dev/ttyUSB0 -d attiny1614",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	session.AddToCommand(command)
	return command
}

func run(cmd *cobra.Command, args []string) {
	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	sib := p.SIB()
	fmt.Printf("Family:        %s\n", sib.FamilyName())
	fmt.Printf("NVM:           %s (controller %s)\n", sib.NVM, p.NVMVersion())
	fmt.Printf("Debug (OCD):   %s\n", sib.Debug)
	fmt.Printf("UPDI revision: %s\n", sib.PDI)
	fmt.Printf("Extra:         %s\n", sib.Extra)

	signature, err := p.ReadSignature()
	if errors.Is(err, programmer.ErrLocked) {
		// A locked device still answers the SIB but hides its
		// memories.
		fmt.Println("Signature:     unavailable, the device is locked")
		return
	}
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Printf("Signature:     %X\n", signature)
	rev := p.SiliconRevision()
	fmt.Printf("Revision:      %c%d\n", 'A'+rev>>4, rev&0x0F)
}
