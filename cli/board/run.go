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
	"github.com/spf13/cobra"
)

// NewRunCommand creates a new `run` command
func NewRunCommand() *cobra.Command {
	var commonFlags arguments.Flags
	var reboot bool
	command := &cobra.Command{
		Use:     "run",
		Short:   "Starts the application in flash.",
		Long:    "Connects to the ROM loader and makes it leave, starting the application already written in flash.",
		Example: "  " + os.Args[0] + " run -p /dev/ttyUSB0 --reboot",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			common.CheckFlags(commonFlags)
			common.CheckPort(commonFlags.Port)

			f, err := flasher.NewESP8266Flasher(commonFlags.Port, commonFlags.Baud, esprom.DefaultConfig())
			if err != nil {
				feedback.Fatal(fmt.Sprintf("Error connecting to the ROM loader: %s", err), common.ExitCodeFor(err))
			}
			err = f.Run(reboot)
			f.Close()
			if err != nil {
				feedback.Fatal(fmt.Sprintf("Error starting the application: %s", err), common.ExitCodeFor(err))
			}
			feedback.Printf("Application started")
		},
	}
	commonFlags.AddToCommand(command)
	command.Flags().BoolVar(&reboot, "reboot", false, "Reboot the chip instead of jumping to the application")
	return command
}
