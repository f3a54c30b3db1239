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

// Package slip implements the delimiter and escape byte-stuffing used to
// frame every message exchanged with the ESP ROM loader.
package slip

import (
	"errors"
	"time"
)

// Framing bytes
const (
	End    byte = 0xC0
	Esc    byte = 0xDB
	EscEnd byte = 0xDC
	EscEsc byte = 0xDD
)

// DefaultTimeout is the reference deadline for a single ReadFrame attempt.
const DefaultTimeout = 500 * time.Millisecond

var (
	// ErrTimeout is returned when no complete frame arrived before the deadline.
	ErrTimeout = errors.New("timeout waiting for SLIP frame")
	// ErrNoFrameStart is returned when the first byte read is not a frame delimiter.
	ErrNoFrameStart = errors.New("SLIP frame does not start with 0xC0")
	// ErrInvalidEscape is returned when 0xDB is followed by anything but 0xDC or 0xDD.
	ErrInvalidEscape = errors.New("invalid SLIP escape sequence")
)

// IsNoFrame reports whether err is one of the "no frame" results of ReadFrame.
// All of them are retryable.
func IsNoFrame(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNoFrameStart) || errors.Is(err, ErrInvalidEscape)
}

// Encode wraps payload between two End delimiters, escaping End and Esc bytes.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2+len(payload)/8)
	out = append(out, End)
	for _, b := range payload {
		switch b {
		case End:
			out = append(out, Esc, EscEnd)
		case Esc:
			out = append(out, Esc, EscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, End)
}
