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

package flasher

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// ErrPortClosed is returned by SerialPort operations on a port not yet opened
var ErrPortClosed = FlasherError{err: "serial port is not open"}

// SerialPort is an esprom.Port backed by a local serial device, opened at a
// fixed baud rate with 8 data bits, no parity and one stop bit.
type SerialPort struct {
	address  string
	baudRate int
	port     serial.Port
	timeout  time.Duration
}

// NewSerialPort creates a SerialPort for the device at address. The device is
// opened by Open.
func NewSerialPort(address string, baudRate int) *SerialPort {
	return &SerialPort{address: address, baudRate: baudRate}
}

// Address returns the device name
func (p *SerialPort) Address() string {
	return p.address
}

func (p *SerialPort) Open() error {
	port, err := serial.Open(p.address, &serial.Mode{
		BaudRate: p.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		err = fmt.Errorf("could not open serial port %s: %w", p.address, err)
		logrus.Error(err)
		return err
	}
	logrus.Infof("Opened port %s at %d", p.address, p.baudRate)
	p.port = port
	p.timeout = 0
	return nil
}

func (p *SerialPort) IsOpen() bool {
	return p.port != nil
}

func (p *SerialPort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	logrus.Debugf("Closed port %s", p.address)
	return err
}

func (p *SerialPort) Write(buf []byte) (int, error) {
	if p.port == nil {
		return 0, ErrPortClosed
	}
	return p.port.Write(buf)
}

// Read waits at most timeout for incoming bytes. The read timeout of the
// device is only changed when it differs from the previous call.
func (p *SerialPort) Read(buf []byte, timeout time.Duration) (int, error) {
	if p.port == nil {
		return 0, ErrPortClosed
	}
	if timeout != p.timeout {
		if err := p.port.SetReadTimeout(timeout); err != nil {
			err = fmt.Errorf("could not set timeout on serial port: %s", err)
			logrus.Error(err)
			return 0, err
		}
		p.timeout = timeout
	}
	return p.port.Read(buf)
}

func (p *SerialPort) ResetInputBuffer() error {
	if p.port == nil {
		return ErrPortClosed
	}
	return p.port.ResetInputBuffer()
}

func (p *SerialPort) SetDTR(dtr bool) error {
	if p.port == nil {
		return ErrPortClosed
	}
	return p.port.SetDTR(dtr)
}

func (p *SerialPort) SetRTS(rts bool) error {
	if p.port == nil {
		return ErrPortClosed
	}
	return p.port.SetRTS(rts)
}
