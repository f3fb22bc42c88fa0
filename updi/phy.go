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
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudrate is the working baud rate used when the caller does not
// ask for a specific one.
const DefaultBaudrate = 115200

const recvTimeout = 1 * time.Second

// Transport is the byte-oriented half-duplex channel the datalink layer
// runs on.
type Transport interface {
	// Send transmits buf and consumes the echo the single-wire line
	// produces for every transmitted byte.
	Send(buf []byte) error
	// Recv reads up to n response bytes. Fewer bytes than requested is
	// not an error at this layer; the caller decides whether a short
	// response violates the frame format.
	Recv(n int) ([]byte, error)
	// DoubleBreak forces the target's UPDI module back to its idle
	// state after a framing loss.
	DoubleBreak() error
}

// Phy drives a serial adapter wired to the target's UPDI pin. UPDI runs
// 8 data bits, even parity, 2 stop bits at the working baud rate.
type Phy struct {
	port     serial.Port
	baudrate int
	rtsMode  RTSMode
}

// OpenPhy opens the serial port and configures it for UPDI framing.
// A baudrate of 0 selects DefaultBaudrate.
func OpenPhy(portAddress string, baudrate int, rtsMode RTSMode) (*Phy, error) {
	if baudrate == 0 {
		baudrate = DefaultBaudrate
	}
	logrus.Debugf("Opening serial port %s at %d baud", portAddress, baudrate)
	port, err := serial.Open(portAddress, &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	})
	if err != nil {
		return nil, transportError("open "+portAddress, err)
	}
	if err := port.SetReadTimeout(recvTimeout); err != nil {
		port.Close()
		return nil, transportError("set read timeout", err)
	}
	p := &Phy{port: port, baudrate: baudrate, rtsMode: rtsMode}
	// drain any extraneous input
	p.Drain()
	if err := p.applyRTSMode(); err != nil {
		port.Close()
		return nil, err
	}
	return p, nil
}

// NewPhy wraps an already opened port. Used by tests.
func NewPhy(port serial.Port, baudrate int, rtsMode RTSMode) *Phy {
	if baudrate == 0 {
		baudrate = DefaultBaudrate
	}
	return &Phy{port: port, baudrate: baudrate, rtsMode: rtsMode}
}

func (p *Phy) applyRTSMode() error {
	if p.rtsMode == RTSDefault {
		return nil
	}
	if err := p.setHandshakeLines(false); err != nil {
		return err
	}
	return p.setHandshakeLines(p.rtsMode == RTSLow)
}

func (p *Phy) setHandshakeLines(asserted bool) error {
	if err := p.port.SetDTR(asserted); err != nil {
		return transportError("set DTR", err)
	}
	if err := p.port.SetRTS(asserted); err != nil {
		return transportError("set RTS", err)
	}
	return nil
}

// Send writes buf and reads back the same number of bytes: the UPDI line
// is single-wire, so the adapter receives its own transmission. Skipping
// the read-back desynchronizes every receive that follows.
func (p *Phy) Send(buf []byte) error {
	logrus.Debugf("Sending %d bytes % X", len(buf), buf)
	data := buf
	for len(data) > 0 {
		sent, err := p.port.Write(data)
		if err != nil {
			return transportError("serial send", err)
		}
		data = data[sent:]
	}
	if _, err := p.Recv(len(buf)); err != nil {
		return err
	}
	return nil
}

// Recv reads up to n bytes, giving up once the port read times out.
// Zero bytes means the target is not responding at all.
func (p *Phy) Recv(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		got, err := p.port.Read(buf[read:])
		if err != nil {
			return buf[:read], transportError("serial recv", err)
		}
		if got == 0 {
			// read timeout
			break
		}
		read += got
	}
	if read == 0 {
		return nil, transportError("serial recv", errTargetSilent)
	}
	logrus.Debugf("Received %d bytes % X", read, buf[:read])
	return buf[:read], nil
}

var errTargetSilent = &Error{Kind: KindTransport, Op: "recv", Msg: "target is not responding"}

// Drain discards any pending input.
func (p *Phy) Drain() {
	p.port.ResetInputBuffer()
}

// DoubleBreak resynchronizes the UPDI module. The line temporarily drops
// to 300 baud 8E1 so that a zero byte stretches into a legal BREAK
// condition regardless of what baud rate the target currently expects,
// sends two such breaks 100 ms apart, then restores the working rate at
// 8E2.
func (p *Phy) DoubleBreak() error {
	logrus.Debug("Sending double break")
	if err := p.port.SetMode(&serial.Mode{
		BaudRate: 300,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}); err != nil {
		return transportError("set break baudrate", err)
	}
	if err := p.applyRTSMode(); err != nil {
		return err
	}

	p.port.Write([]byte{PhyBreak})
	p.Recv(1)
	time.Sleep(100 * time.Millisecond)
	p.port.Write([]byte{PhyBreak})
	p.Recv(1)
	p.Drain()

	if err := p.port.SetMode(&serial.Mode{
		BaudRate: p.baudrate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	}); err != nil {
		return transportError("restore baudrate", err)
	}
	if err := p.applyRTSMode(); err != nil {
		return err
	}
	p.Drain()
	return nil
}

// SendBreak transmits a single BREAK byte at the working baud rate.
// Sent once right after open to wake the UPDI module up.
func (p *Phy) SendBreak() error {
	return p.Send([]byte{PhyBreak})
}

// Close releases the handshake lines and closes the port.
func (p *Phy) Close() error {
	p.setHandshakeLines(false)
	return p.port.Close()
}
