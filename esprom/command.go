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
	"fmt"

	"github.com/arduino/arduino-esploader/slip"
	"github.com/sirupsen/logrus"
)

// Response is a response message received from the ROM loader.
type Response struct {
	Opcode Opcode
	// Value is the header word that holds the checksum in commands
	Value uint32
	// Payload is the message body, the first two bytes are the status pair
	Payload []byte
}

// Status returns the status pair carried by the response payload
func (r *Response) Status() (status byte, code byte, err error) {
	if len(r.Payload) < statusPairBytes {
		return 0, 0, fmt.Errorf("%s: %w", r.Opcode, ErrShortResponse)
	}
	return r.Payload[0], r.Payload[1], nil
}

func (r *Response) checkStatus() error {
	status, code, err := r.Status()
	if err != nil {
		return err
	}
	if status != 0 || code != 0 {
		return &DeviceRejectedError{Opcode: r.Opcode, Status: status, Code: code}
	}
	return nil
}

// encodeCommand builds the header and appends the payload. The checksum is
// copied to the header as is, it is not recomputed.
func encodeCommand(op Opcode, payload []byte, checksum uint32) ([]byte, error) {
	if len(payload) > maxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	msg := make([]byte, HeaderSize+len(payload))
	msg[headerKind] = kindCommand
	msg[headerOp] = byte(op)
	binary.LittleEndian.PutUint16(msg[headerLen:], uint16(len(payload)))
	binary.LittleEndian.PutUint32(msg[headerChecksum:], checksum)
	copy(msg[HeaderSize:], payload)
	return msg, nil
}

// writeCommand sends a command without waiting for the answer
func (s *Session) writeCommand(op Opcode, payload []byte, checksum uint32) error {
	msg, err := encodeCommand(op, payload, checksum)
	if err != nil {
		return err
	}
	logrus.Tracef("sending %s with %d bytes of payload", op, len(payload))
	if _, err := s.port.Write(slip.Encode(msg)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// SendCommand sends a command and waits for the response with the same opcode.
func (s *Session) SendCommand(op Opcode, payload []byte, checksum uint32) (*Response, error) {
	if err := s.writeCommand(op, payload, checksum); err != nil {
		return nil, err
	}
	return s.ReadResponse(op)
}

// ReadResponse waits for a response to expected, or to any command if expected
// is OpNone. Frames too short for a header, frames that are not responses and
// responses to other commands are dropped. A read timeout ends the wait at
// once, malformed frames only use up one of the retries.
func (s *Session) ReadResponse(expected Opcode) (*Response, error) {
	for i := 0; i < s.config.ResponseRetries; i++ {
		frame, err := s.dec.ReadFrame(s.config.ReadTimeout)
		if errors.Is(err, slip.ErrTimeout) {
			return nil, fmt.Errorf("waiting for %s: %w", expected, ErrNoResponse)
		}
		if slip.IsNoFrame(err) {
			continue
		}
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}

		if len(frame) < HeaderSize {
			logrus.Tracef("dropping %d bytes frame: too short", len(frame))
			continue
		}
		if frame[headerKind] != kindResponse {
			logrus.Tracef("dropping frame of kind 0x%02x", frame[headerKind])
			continue
		}
		op := Opcode(frame[headerOp])
		if expected != OpNone && op != expected {
			logrus.Tracef("dropping response to %s while waiting for %s", op, expected)
			continue
		}
		return &Response{
			Opcode:  op,
			Value:   binary.LittleEndian.Uint32(frame[headerValue:]),
			Payload: frame[HeaderSize:],
		}, nil
	}
	return nil, fmt.Errorf("waiting for %s: %w", expected, ErrNoResponse)
}

// command sends fields as little endian words followed by data and checks the
// status of the response. The checksum covers data only.
func (s *Session) command(op Opcode, data []byte, fields ...uint32) (*Response, error) {
	payload := make([]byte, 4*len(fields), 4*len(fields)+len(data))
	for i, field := range fields {
		binary.LittleEndian.PutUint32(payload[4*i:], field)
	}
	payload = append(payload, data...)

	var checksum uint32
	if data != nil {
		checksum = Checksum(data, s.config.ChecksumSeed)
	}
	resp, err := s.SendCommand(op, payload, checksum)
	if err != nil {
		return nil, err
	}
	if err := resp.checkStatus(); err != nil {
		return nil, err
	}
	return resp, nil
}
