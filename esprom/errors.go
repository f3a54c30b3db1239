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
	"errors"
	"fmt"
)

var (
	// ErrNoResponse is returned when no matching response frame was received.
	ErrNoResponse = errors.New("no response from ROM loader")
	// ErrUnreachable is returned when the ROM loader never answered the sync
	// sequence. Only Reconnect leaves this state.
	ErrUnreachable = errors.New("ROM loader unreachable")
	// ErrNotReady is returned when an operation needs a synchronized session.
	ErrNotReady = errors.New("session is not synchronized with the ROM loader")
	// ErrPayloadTooLarge is returned for payloads not fitting the 16 bit length field.
	ErrPayloadTooLarge = errors.New("payload exceeds 65535 bytes")
	// ErrShortResponse is returned when a response has no status pair.
	ErrShortResponse = errors.New("response too short to carry a status")
)

// TransportError wraps a failure of the underlying serial port.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeviceRejectedError is returned when the ROM loader answers with a non zero
// status pair.
type DeviceRejectedError struct {
	Opcode Opcode
	Status byte
	Code   byte
}

func (e *DeviceRejectedError) Error() string {
	return fmt.Sprintf("%s rejected by device: status 0x%02x, error 0x%02x", e.Opcode, e.Status, e.Code)
}

// UnknownVendorError is returned when the OUI of the MAC can not be derived
// from the OTP registers.
type UnknownVendorError struct {
	Selector byte
}

func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("unknown OUI selector %d", e.Selector)
}
