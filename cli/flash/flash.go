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

package flash

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/avrdudes/serialupdi/cli/arguments"
	"github.com/avrdudes/serialupdi/parts"
	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	session   arguments.Session
	inputFile string
	noErase   bool
	verify    bool
)

// NewCommand creates a new `flash` command
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "flash",
		Short:   "Writes a firmware image to the flash.",
		Long:    "Erases the device and writes the given Intel HEX or raw binary image to the flash, page by page.",
		Example: "  " + os.Args[0] + " flash -p /dev/ttyUSB0 -d attiny1614 -i firmware.hex",
		Args:    cobra.NoArgs,
		Run:     run,
	}
	session.AddToCommand(command)
	command.Flags().StringVarP(&inputFile, "input", "i", "", "firmware image to flash, Intel HEX or raw binary")
	command.Flags().BoolVar(&noErase, "no-erase", false, "skip the chip erase before writing")
	command.Flags().BoolVar(&verify, "verify", false, "read the flash back and compare it with the image")
	command.MarkFlagRequired("input")
	return command
}

func run(cmd *cobra.Command, args []string) {
	p, err := session.Open()
	if err != nil {
		logrus.Fatal(err)
	}
	defer p.Close()

	flash, err := p.Part().Memory(parts.KindFlash)
	if err != nil {
		logrus.Fatal(err)
	}
	image, err := loadImage(paths.New(inputFile), flash)
	if err != nil {
		logrus.Fatal(err)
	}

	if !noErase {
		logrus.Info("Erasing the device")
		if err := p.ChipErase(false); err != nil {
			logrus.Fatal(err)
		}
	}

	written := 0
	for _, segment := range pages(image, flash) {
		if err := p.WriteMemory(flash, segment.address, segment.data); err != nil {
			logrus.Fatal(err)
		}
		written += len(segment.data)
	}
	fmt.Printf("Wrote %d bytes to flash\n", written)

	if verify {
		for _, segment := range pages(image, flash) {
			readBack, err := p.ReadMemory(flash, segment.address, len(segment.data))
			if err != nil {
				logrus.Fatal(err)
			}
			if !bytes.Equal(readBack, segment.data) {
				logrus.Fatalf("Verification failed at 0x%06X", segment.address)
			}
		}
		fmt.Println("Verification OK")
	}
}

// loadImage reads the input file into a flash-sized image; bytes not
// covered by the file stay 0xFF. Files ending in .hex or .ihex are
// parsed as Intel HEX with addresses relative to the start of flash,
// anything else is a raw binary placed at the start of flash.
func loadImage(file *paths.Path, flash *parts.Memory) ([]byte, error) {
	image := make([]byte, flash.Size)
	for i := range image {
		image[i] = 0xFF
	}

	ext := strings.ToLower(file.Ext())
	if ext == ".hex" || ext == ".ihex" {
		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", file, err)
		}
		defer f.Close()
		mem := gohex.NewMemory()
		if err := mem.ParseIntelHex(f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		for _, segment := range mem.GetDataSegments() {
			if int(segment.Address)+len(segment.Data) > flash.Size {
				return nil, fmt.Errorf("image segment at 0x%06X does not fit in %d bytes of flash", segment.Address, flash.Size)
			}
			copy(image[segment.Address:], segment.Data)
		}
		return image, nil
	}

	data, err := file.ReadFile()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if len(data) > flash.Size {
		return nil, fmt.Errorf("image of %d bytes does not fit in %d bytes of flash", len(data), flash.Size)
	}
	copy(image, data)
	return image, nil
}

type segment struct {
	address uint32
	data    []byte
}

// pages returns the page-aligned runs of the image that contain
// anything besides erased bytes, so untouched pages are skipped.
func pages(image []byte, flash *parts.Memory) []segment {
	segments := []segment{}
	for offset := 0; offset < len(image); offset += flash.PageSize {
		end := offset + flash.PageSize
		if end > len(image) {
			end = len(image)
		}
		page := image[offset:end]
		if blank(page) {
			continue
		}
		address := flash.Address + uint32(offset)
		if n := len(segments); n > 0 && segments[n-1].address+uint32(len(segments[n-1].data)) == address {
			segments[n-1].data = append(segments[n-1].data, page...)
		} else {
			segments = append(segments, segment{address: address, data: append([]byte(nil), page...)})
		}
	}
	return segments
}

func blank(page []byte) bool {
	for _, b := range page {
		if b != 0xFF {
			return false
		}
	}
	return true
}
