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
	"github.com/sirupsen/logrus"
)

// Connect resets the chip into the ROM loader and synchronizes with it.
//
// The first phase resets the chip and sends a sync probe, up to
// SyncResetAttempts times, stopping early as soon as a probe gets any answer.
// The second phase sends probes without resetting, up to SyncProbeAttempts
// times, and succeeds when a frame follows the probe. A loader left running
// by a previous session may only answer in the second phase.
//
// If both phases fail the session becomes Unreachable and ErrUnreachable is
// returned; Connect keeps failing until Reconnect is called.
func (s *Session) Connect() error {
	if s.state == Unreachable {
		return ErrUnreachable
	}
	if err := s.Open(); err != nil {
		return err
	}

	for attempt := 1; attempt <= s.config.SyncResetAttempts; attempt++ {
		s.setState(Resetting)
		if err := s.reset(true); err != nil {
			logrus.Debugf("reset attempt %d failed: %s", attempt, err)
			continue
		}
		s.setState(Syncing)
		s.config.Sleep(s.config.BootDelay)
		if err := s.flush(); err != nil {
			logrus.Debugf("sync attempt %d: %s", attempt, err)
			continue
		}
		if answers := s.probe(); answers > 0 {
			logrus.Debugf("ROM loader answered after %d reset(s)", attempt)
			break
		}
	}

	s.setState(Syncing)
	for attempt := 1; attempt <= s.config.SyncProbeAttempts; attempt++ {
		s.probe()
		if _, err := s.dec.ReadFrame(s.config.ReadTimeout); err == nil {
			logrus.Debugf("ROM loader synchronized on probe %d", attempt)
			s.setState(Ready)
			return nil
		}
	}

	s.setState(Unreachable)
	return ErrUnreachable
}

// Reconnect leaves the Unreachable state and runs Connect again.
func (s *Session) Reconnect() error {
	s.setState(Disconnected)
	return s.Connect()
}

// probe sends a SYNC command and drains the echoes the loader sends back.
// It returns how many frames were received.
func (s *Session) probe() int {
	if err := s.writeCommand(OpSync, syncPayload, 0); err != nil {
		logrus.Debugf("sync probe: %s", err)
		return 0
	}
	answers := 0
	for i := 0; i < s.config.SyncDrainReads; i++ {
		if _, err := s.dec.ReadFrame(s.config.ReadTimeout); err == nil {
			answers++
		}
	}
	return answers
}
