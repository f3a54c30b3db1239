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

package board

import (
	"fmt"
	"os"

	"github.com/arduino/arduino-esploader/cli/arguments"
	"github.com/arduino/arduino-esploader/cli/common"
	"github.com/arduino/arduino-esploader/cli/feedback"
	"github.com/arduino/arduino-esploader/esprom"
	"github.com/arduino/arduino-esploader/flasher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewResetCommand creates a new `reset` command
func NewResetCommand() *cobra.Command {
	var commonFlags arguments.Flags
	var bootloader bool
	command := &cobra.Command{
		Use:   "reset",
		Short: "Resets the ESP8266.",
		Long:  "Pulses the reset line of the ESP8266 through DTR, optionally holding GPIO0 low through RTS to start the ROM loader.",
		Example: "" +
			"  " + os.Args[0] + " reset -p /dev/ttyUSB0\n" +
			"  " + os.Args[0] + " reset -p /dev/ttyUSB0 --bootloader\n",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			common.CheckFlags(commonFlags)
			common.CheckPort(commonFlags.Port)
			if err := flasher.Reset(commonFlags.Port, commonFlags.Baud, bootloader, esprom.DefaultConfig()); err != nil {
				feedback.Fatal(fmt.Sprintf("Error resetting the board: %s", err), common.ExitCodeFor(err))
			}
			logrus.Infof("Board on %s reset", commonFlags.Port)
			if bootloader {
				feedback.Printf("Board reset into the ROM loader")
			} else {
				feedback.Printf("Board reset")
			}
		},
	}
	commonFlags.AddToCommand(command)
	command.Flags().BoolVar(&bootloader, "bootloader", false, "Start the ROM loader instead of the application")
	return command
}
