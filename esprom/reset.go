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

import "github.com/sirupsen/logrus"

// Reset pulses the chip reset line and selects the boot mode. The chip boots
// the ROM loader if intoBootloader is true and the flash application
// otherwise. The port is opened if needed and left open. Any previous
// synchronization is lost. An Unreachable session stays Unreachable: only
// Reconnect synchronizes it again.
//
// The lines are inverted on the board:
//
//	DTR RTS | RST GPIO0
//	 0   0  |  1    1
//	 0   1  |  1    0
//	 1   0  |  0    1
//	 1   1  |  1    1
func (s *Session) Reset(intoBootloader bool) error {
	if err := s.Open(); err != nil {
		return err
	}
	if s.state == Unreachable {
		return s.reset(intoBootloader)
	}
	s.setState(Resetting)
	err := s.reset(intoBootloader)
	s.setState(Disconnected)
	return err
}

func (s *Session) reset(intoBootloader bool) error {
	logrus.Debugf("resetting chip (bootloader: %v)", intoBootloader)
	steps := []struct {
		dtr, rts bool
		hold     bool
	}{
		{dtr: true, rts: false, hold: true},
		{dtr: false, rts: intoBootloader, hold: true},
		{dtr: false, rts: false},
	}
	for _, step := range steps {
		if err := s.port.SetDTR(step.dtr); err != nil {
			return &TransportError{Op: "set DTR", Err: err}
		}
		if err := s.port.SetRTS(step.rts); err != nil {
			return &TransportError{Op: "set RTS", Err: err}
		}
		if step.hold {
			s.config.Sleep(s.config.ResetHold)
		}
	}
	return nil
}
