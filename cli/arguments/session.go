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

package arguments

import (
	"fmt"
	"strings"

	"github.com/avrdudes/serialupdi/parts"
	"github.com/avrdudes/serialupdi/programmer"
	"github.com/avrdudes/serialupdi/updi"
	"github.com/spf13/cobra"
)

// Session holds the connection flags shared by every command that
// talks to a device.
type Session struct {
	Port       string
	Device     string
	Baudrate   int
	RTS        string
	StrictKeys bool
}

// AddToCommand adds the connection flags to a command.
func (s *Session) AddToCommand(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.Port, "port", "p", "", "serial port the UPDI adapter is connected to")
	cmd.Flags().StringVarP(&s.Device, "device", "d", "", "target device, e.g. "+strings.Join(parts.Names(), ", "))
	cmd.Flags().IntVarP(&s.Baudrate, "baudrate", "b", updi.DefaultBaudrate, "UPDI baud rate")
	cmd.Flags().StringVar(&s.RTS, "rts", "default", "DTR/RTS line policy, can be {default|low|high}")
	cmd.Flags().BoolVar(&s.StrictKeys, "strict-keys", false, "treat an unacknowledged activation key as a hard failure")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("device")
}

func (s *Session) rtsMode() (updi.RTSMode, error) {
	switch strings.ToLower(s.RTS) {
	case "", "default":
		return updi.RTSDefault, nil
	case "low":
		return updi.RTSLow, nil
	case "high":
		return updi.RTSHigh, nil
	default:
		return 0, fmt.Errorf("invalid option for --rts: %s", s.RTS)
	}
}

// Open connects to the device and brings the session up.
func (s *Session) Open() (*programmer.Programmer, error) {
	part, err := parts.Find(s.Device)
	if err != nil {
		return nil, err
	}
	rts, err := s.rtsMode()
	if err != nil {
		return nil, err
	}
	opts := []programmer.Option{
		programmer.WithBaudrate(s.Baudrate),
		programmer.WithRTSMode(rts),
	}
	if s.StrictKeys {
		opts = append(opts, programmer.WithStrictKeyCheck())
	}
	p, err := programmer.Open(s.Port, part, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
