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

package common

import (
	"errors"
	"fmt"

	"github.com/arduino/arduino-esploader/cli/arguments"
	"github.com/arduino/arduino-esploader/cli/feedback"
	"github.com/arduino/arduino-esploader/esprom"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// CheckFlags runs a basic check, errors if the flags are not defined
func CheckFlags(flags arguments.Flags) {
	if err := ValidateFlags(flags); err != nil {
		feedback.Fatal(fmt.Sprintf("Error: %s", err), feedback.ErrBadArgument)
	}
}

// ValidateFlags returns an error if port or baud rate are missing
func ValidateFlags(flags arguments.Flags) error {
	if flags.Port == "" {
		return errors.New("missing serial port")
	}
	if flags.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", flags.Baud)
	}
	logrus.Debugf("port: %s, baud: %d", flags.Port, flags.Baud)
	return nil
}

// CheckPort fails if port is not one of the serial ports of the system, it
// may have been unplugged.
func CheckPort(port string) {
	if err := ValidatePort(port); err != nil {
		feedback.Fatal(fmt.Sprintf("Error: %s", err), feedback.ErrSerial)
	}
}

// ValidatePort returns an error if port is not one of the serial ports of
// the system.
func ValidatePort(port string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("listing serial ports: %w", err)
	}
	if !contains(ports, port) {
		return fmt.Errorf("serial port %s is not available", port)
	}
	return nil
}

func contains(ports []string, port string) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

// ExitCodeFor returns the exit code matching the cause of err
func ExitCodeFor(err error) feedback.ExitCode {
	var rejected *esprom.DeviceRejectedError
	var unknown *esprom.UnknownVendorError
	var transport *esprom.TransportError
	switch {
	case err == nil:
		return feedback.Success
	case errors.As(err, &transport):
		return feedback.ErrSerial
	case errors.Is(err, esprom.ErrUnreachable),
		errors.Is(err, esprom.ErrNoResponse),
		errors.As(err, &rejected),
		errors.As(err, &unknown):
		return feedback.ErrDevice
	}
	return feedback.ErrGeneric
}
