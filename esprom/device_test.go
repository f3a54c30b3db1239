/*
	arduino-esploader
	Copyright (c) 2021 Arduino LLC.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package esprom

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/arduino/arduino-esploader/slip"
)

// command is a command message as received by the fake device
type command struct {
	op       Opcode
	checksum uint32
	payload  []byte
}

func (c command) field(i int) uint32 {
	return binary.LittleEndian.Uint32(c.payload[4*i:])
}

type lines struct{ dtr, rts bool }

// fakeDevice is a Port emulating a chip running the ROM loader. Unless slow
// is set reads never block: an empty receive buffer behaves like an expired
// timeout.
type fakeDevice struct {
	open     bool
	openErr  error
	lineErr  error
	writeErr error
	rx       [][]byte
	commands []command
	lines    []lines
	dtr, rts bool
	flushes  int
	opens    int
	closes   int
	// slow makes reads on an empty buffer wait for the whole timeout
	slow bool
	// handler is called for each command; nil means the device is mute
	handler func(d *fakeDevice, c command)
}

var errLineStuck = errors.New("line stuck")

func (d *fakeDevice) Open() error {
	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	d.opens++
	return nil
}

func (d *fakeDevice) IsOpen() bool { return d.open }

func (d *fakeDevice) Close() error {
	d.open = false
	d.closes++
	return nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	msg := unslip(p)
	c := command{
		op:       Opcode(msg[1]),
		checksum: binary.LittleEndian.Uint32(msg[4:8]),
		payload:  msg[8 : 8+int(binary.LittleEndian.Uint16(msg[2:4]))],
	}
	d.commands = append(d.commands, c)
	if d.handler != nil {
		d.handler(d, c)
	}
	return len(p), nil
}

// Read returns at most one queued chunk, each reply being its own chunk
func (d *fakeDevice) Read(p []byte, timeout time.Duration) (int, error) {
	if len(d.rx) == 0 {
		if d.slow {
			time.Sleep(timeout)
		}
		return 0, nil
	}
	n := copy(p, d.rx[0])
	if n == len(d.rx[0]) {
		d.rx = d.rx[1:]
	} else {
		d.rx[0] = d.rx[0][n:]
	}
	return n, nil
}

func (d *fakeDevice) ResetInputBuffer() error {
	d.rx = nil
	d.flushes++
	return nil
}

func (d *fakeDevice) SetDTR(dtr bool) error {
	if d.lineErr != nil {
		return d.lineErr
	}
	d.dtr = dtr
	return nil
}

func (d *fakeDevice) SetRTS(rts bool) error {
	if d.lineErr != nil {
		return d.lineErr
	}
	d.rts = rts
	d.lines = append(d.lines, lines{d.dtr, d.rts})
	return nil
}

// reply queues a response frame
func (d *fakeDevice) reply(op Opcode, value uint32, payload ...byte) {
	d.rx = append(d.rx, slip.Encode(response(op, value, payload...)))
}

// ack queues a successful response to c
func (d *fakeDevice) ack(c command) {
	d.reply(c.op, 0, 0, 0)
}

func (d *fakeDevice) commandsWith(op Opcode) []command {
	var res []command
	for _, c := range d.commands {
		if c.op == op {
			res = append(res, c)
		}
	}
	return res
}

func response(op Opcode, value uint32, payload ...byte) []byte {
	msg := make([]byte, HeaderSize, HeaderSize+len(payload))
	msg[0] = kindResponse
	msg[1] = byte(op)
	binary.LittleEndian.PutUint16(msg[2:], uint16(len(payload)))
	binary.LittleEndian.PutUint32(msg[4:], value)
	return append(msg, payload...)
}

// unslip decodes a single SLIP frame as produced by slip.Encode
func unslip(p []byte) []byte {
	var out []byte
	for i := 1; i < len(p)-1; i++ {
		if p[i] == slip.Esc {
			i++
			if p[i] == slip.EscEnd {
				out = append(out, slip.End)
			} else {
				out = append(out, slip.Esc)
			}
			continue
		}
		out = append(out, p[i])
	}
	return out
}

// loader answers SYNC with eight echoes like the real ROM, reads registers
// from regs and acknowledges everything else.
func loader(regs map[uint32]uint32) func(d *fakeDevice, c command) {
	return func(d *fakeDevice, c command) {
		switch c.op {
		case OpSync:
			for i := 0; i < 8; i++ {
				d.ack(c)
			}
		case OpReadReg:
			d.reply(c.op, regs[c.field(0)], 0, 0)
		default:
			d.ack(c)
		}
	}
}

func testConfig() Config {
	config := DefaultConfig()
	config.Sleep = func(time.Duration) {}
	return config
}

// readySession returns a session already synchronized with d
func readySession(d *fakeDevice) *Session {
	d.open = true
	s := NewSession(d, testConfig())
	s.state = Ready
	return s
}
