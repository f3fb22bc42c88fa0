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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadDataSingleByteSkipsRepeat(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), {0x42}}}
	link := NewLink(tr)

	data, err := link.ReadData(0x1100, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x42}, data)
	require.Equal(t, [][]byte{
		{PhySync, OpST | PtrAddress | Data16, 0x00, 0x11},
		{PhySync, OpLD | PtrInc | Data8},
	}, tr.sends)
}

func TestReadDataBurst(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), {0x01, 0x02, 0x03}}}
	link := NewLink(tr)

	data, err := link.ReadData(0x1100, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	require.Equal(t, [][]byte{
		{PhySync, OpST | PtrAddress | Data16, 0x00, 0x11},
		{PhySync, OpRepeat | RepeatByte, 0x02},
		{PhySync, OpLD | PtrInc | Data8},
	}, tr.sends)
}

func TestReadDataTooLarge(t *testing.T) {
	tr := &scriptTransport{}
	link := NewLink(tr)

	_, err := link.ReadData(0x1100, MaxRepeatSize+1)
	require.Error(t, err)
	require.True(t, IsFraming(err))
	// Rejected before anything is sent.
	require.Empty(t, tr.sends)
}

func TestWriteDataSingleByte(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), ack()}}
	link := NewLink(tr)

	require.NoError(t, link.WriteData(0x1280, []byte{0x54}))
	require.Equal(t, []byte{PhySync, OpSTS | Address16 | Data8, 0x80, 0x12}, tr.sends[0])
}

func TestWriteDataTwoBytesAsDirectStores(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), ack(), ack(), ack()}}
	link := NewLink(tr)

	require.NoError(t, link.WriteData(0x1280, []byte{0x54, 0x55}))
	require.Equal(t, [][]byte{
		{PhySync, OpSTS | Address16 | Data8, 0x80, 0x12},
		{0x54},
		{PhySync, OpSTS | Address16 | Data8, 0x81, 0x12},
		{0x55},
	}, tr.sends)
}

func TestWriteDataBurst(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), ack(), ack(), ack()}}
	link := NewLink(tr)

	require.NoError(t, link.WriteData(0x1400, []byte{0x01, 0x02, 0x03}))
	require.Equal(t, [][]byte{
		{PhySync, OpST | PtrAddress | Data16, 0x00, 0x14},
		{PhySync, OpRepeat | RepeatByte, 0x02},
		{PhySync, OpST | PtrInc | Data8, 0x01},
		{0x02},
		{0x03},
	}, tr.sends)
}

func TestWriteDataTooLarge(t *testing.T) {
	tr := &scriptTransport{}
	link := NewLink(tr)

	err := link.WriteData(0x1400, make([]byte, MaxRepeatSize+1))
	require.Error(t, err)
	require.True(t, IsFraming(err))
	require.Empty(t, tr.sends)
}

func TestReadDataWords(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), {0x01, 0x02, 0x03, 0x04}}}
	link := NewLink(tr)

	data, err := link.ReadDataWords(0x8000, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)
	require.Equal(t, [][]byte{
		{PhySync, OpST | PtrAddress | Data16, 0x00, 0x80},
		{PhySync, OpRepeat | RepeatByte, 0x01},
		{PhySync, OpLD | PtrInc | Data16},
	}, tr.sends)
}

func TestReadDataWordsTooLarge(t *testing.T) {
	tr := &scriptTransport{}
	link := NewLink(tr)

	_, err := link.ReadDataWords(0x8000, MaxRepeatSize/2+1)
	require.Error(t, err)
	require.True(t, IsFraming(err))
	require.Empty(t, tr.sends)
}

func TestWriteDataWordsSingleWord(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack(), ack()}}
	link := NewLink(tr)

	require.NoError(t, link.WriteDataWords(0x8000, []byte{0x34, 0x12}))
	require.Equal(t, [][]byte{
		{PhySync, OpSTS | Address16 | Data16, 0x00, 0x80},
		{0x34, 0x12},
	}, tr.sends)
}

func TestWriteDataWordsBulk(t *testing.T) {
	tr := &scriptTransport{resps: [][]byte{ack()}}
	link := NewLink(tr)

	require.NoError(t, link.WriteDataWords(0x8000, []byte{0x01, 0x02, 0x03, 0x04}))
	// Pointer write, then the whole RSD glob in one send.
	require.Len(t, tr.sends, 2)
	require.Equal(t, []byte{PhySync, OpST | PtrAddress | Data16, 0x00, 0x80}, tr.sends[0])
	require.Equal(t, []byte{PhySync, OpSTCS | CSCtrlA, 0x0E}, tr.sends[1][:3])
}

func TestWriteDataWordsTooLarge(t *testing.T) {
	tr := &scriptTransport{}
	link := NewLink(tr)

	err := link.WriteDataWords(0x8000, make([]byte, MaxRepeatSize*2+2))
	require.Error(t, err)
	require.True(t, IsFraming(err))
	require.Empty(t, tr.sends)
}

// loopbackTransport interprets pointer stores, repeats and pointer
// loads against an in-memory target, enough to close the byte-wise
// write/read loop.
type loopbackTransport struct {
	mem        map[uint32]byte
	ptr        uint32
	repeat     int
	expectData int
	pending    [][]byte
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{mem: map[uint32]byte{}}
}

func (l *loopbackTransport) Send(buf []byte) error {
	if l.expectData > 0 {
		for _, b := range buf {
			l.mem[l.ptr] = b
			l.ptr++
			l.expectData--
			l.pending = append(l.pending, []byte{PhyAck})
		}
		return nil
	}
	op := buf[1]
	switch op & 0xE0 {
	case OpSTCS:
		// session parameters, ignored
	case OpRepeat:
		l.repeat = int(buf[2])
	case OpST:
		if op&PtrAddress != 0 {
			l.ptr = uint32(buf[2]) | uint32(buf[3])<<8
			l.pending = append(l.pending, []byte{PhyAck})
			break
		}
		count := l.repeat + 1
		l.repeat = 0
		l.mem[l.ptr] = buf[2]
		l.ptr++
		l.expectData = count - 1
		l.pending = append(l.pending, []byte{PhyAck})
	case OpLD:
		count := l.repeat + 1
		l.repeat = 0
		resp := make([]byte, count)
		for i := range resp {
			resp[i] = l.mem[l.ptr]
			l.ptr++
		}
		l.pending = append(l.pending, resp)
	}
	return nil
}

func (l *loopbackTransport) Recv(n int) ([]byte, error) {
	if len(l.pending) == 0 {
		return nil, errTargetSilent
	}
	resp := l.pending[0]
	l.pending = l.pending[1:]
	if len(resp) > n {
		resp = resp[:n]
	}
	return resp, nil
}

func (l *loopbackTransport) DoubleBreak() error { return nil }

func TestWriteDataReadDataRoundTrip(t *testing.T) {
	tr := newLoopbackTransport()
	link := NewLink(tr)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	require.NoError(t, link.WriteData(0x1400, payload))

	data, err := link.ReadData(0x1400, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, data)
}
