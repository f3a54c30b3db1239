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

// Package esprom is a client for the serial ROM loader of ESP8266 chips.
//
// A Session drives the reset lines to put the chip in download mode,
// synchronizes with the loader and then reads and writes registers, RAM and
// flash through the loader command set. All calls are blocking and a Session
// must not be shared between goroutines.
package esprom

import (
	"time"

	"github.com/arduino/arduino-esploader/slip"
	"github.com/sirupsen/logrus"
)

// State is the connection state of a Session.
type State int

const (
	// Disconnected means the loader has not been synchronized yet.
	Disconnected State = iota
	// Resetting means the reset lines are being driven.
	Resetting
	// Syncing means sync probes are being exchanged.
	Syncing
	// Ready means the loader answers commands.
	Ready
	// Unreachable means all sync attempts failed.
	Unreachable
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Resetting:
		return "resetting"
	case Syncing:
		return "syncing"
	case Ready:
		return "ready"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// Config holds the timing and retry parameters of a Session.
type Config struct {
	// ReadTimeout bounds each attempt to decode a frame
	ReadTimeout time.Duration
	// ResponseRetries is the number of frames inspected while waiting for a response
	ResponseRetries int
	// SyncResetAttempts is the number of reset+probe rounds of Connect
	SyncResetAttempts int
	// SyncProbeAttempts is the number of probe-only rounds of Connect
	SyncProbeAttempts int
	// SyncDrainReads is the number of frames read and discarded after a probe
	SyncDrainReads int
	// ResetHold is how long each reset line configuration is held
	ResetHold time.Duration
	// BootDelay is the time left to the ROM loader to start after a reset
	BootDelay time.Duration
	// ChecksumSeed is the initial value of data block checksums
	ChecksumSeed uint32
	// Sleep is used for every timed wait, time.Sleep if nil
	Sleep func(time.Duration)
}

// DefaultConfig returns the reference timings of the ROM loader.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       slip.DefaultTimeout,
		ResponseRetries:   100,
		SyncResetAttempts: 4,
		SyncProbeAttempts: 4,
		SyncDrainReads:    7,
		ResetHold:         50 * time.Millisecond,
		BootDelay:         255 * time.Millisecond,
		ChecksumSeed:      0,
		Sleep:             time.Sleep,
	}
}

// Session is a conversation with the ROM loader over a Port.
type Session struct {
	port   Port
	dec    *slip.Decoder
	config Config
	state  State
}

// NewSession creates a Session using port. The port is not opened until it
// is needed.
func NewSession(port Port, config Config) *Session {
	if port == nil {
		panic("port cannot be nil")
	}
	if config.Sleep == nil {
		config.Sleep = time.Sleep
	}
	return &Session{
		port:   port,
		dec:    slip.NewDecoder(port),
		config: config,
		state:  Disconnected,
	}
}

// State returns the current connection state
func (s *Session) State() State {
	return s.state
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.config
}

// Open opens the port if it is not already open.
func (s *Session) Open() error {
	if s.port.IsOpen() {
		return nil
	}
	if err := s.port.Open(); err != nil {
		return &TransportError{Op: "open", Err: err}
	}
	s.dec.Discard()
	return nil
}

// Close releases the port and forgets the synchronization. An Unreachable
// session stays Unreachable.
func (s *Session) Close() error {
	if s.state != Unreachable {
		s.setState(Disconnected)
	}
	s.dec.Discard()
	if !s.port.IsOpen() {
		return nil
	}
	if err := s.port.Close(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

func (s *Session) setState(state State) {
	if s.state != state {
		logrus.Debugf("ROM loader session: %s -> %s", s.state, state)
	}
	s.state = state
}

func (s *Session) requireReady() error {
	if s.state != Ready {
		return ErrNotReady
	}
	return nil
}

// flush drops any byte received so far
func (s *Session) flush() error {
	s.dec.Discard()
	if err := s.port.ResetInputBuffer(); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	return nil
}
