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

import "time"

// Port is the serial link a Session talks through. It is owned by the caller
// and lent to the Session, which opens it if needed and closes it on Close.
//
// DTR drives the chip reset line and RTS drives the boot mode (GPIO0) line,
// as wired on NodeMCU style boards.
type Port interface {
	Open() error
	IsOpen() bool
	Close() error
	Write(p []byte) (int, error)
	// Read waits at most timeout for data and returns what is available.
	// It returns 0, nil when the timeout expires.
	Read(p []byte, timeout time.Duration) (int, error)
	// ResetInputBuffer discards everything received and not yet read.
	ResetInputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}
