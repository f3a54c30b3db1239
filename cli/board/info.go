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

// NewInfoCommand creates a new `info` command
func NewInfoCommand() *cobra.Command {
	var commonFlags arguments.Flags
	command := &cobra.Command{
		Use:     "info",
		Short:   "Shows the identity of the ESP8266.",
		Long:    "Connects to the ROM loader and reads the MAC address, the chip id and the flash chip id.",
		Example: "  " + os.Args[0] + " info -p /dev/ttyUSB0",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			common.CheckFlags(commonFlags)
			common.CheckPort(commonFlags.Port)

			f, err := flasher.NewESP8266Flasher(commonFlags.Port, commonFlags.Baud, esprom.DefaultConfig())
			if err != nil {
				feedback.Fatal(fmt.Sprintf("Error connecting to the ROM loader: %s", err), common.ExitCodeFor(err))
			}
			info, err := f.Info()
			f.Close()
			if err != nil {
				feedback.Fatal(fmt.Sprintf("Error reading chip info: %s", err), common.ExitCodeFor(err))
			}
			feedback.PrintResult(info)
		},
	}
	commonFlags.AddToCommand(command)
	return command
}
