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

package ports

import (
	"fmt"
	"os"
	"strings"

	"github.com/arduino/arduino-cli/table"
	"github.com/arduino/arduino-esploader/cli/feedback"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

// NewCommand creates a new `ports` command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ports",
		Short:   "Lists the serial ports.",
		Long:    "Lists the serial ports available on this system, with the USB identifiers of the adapters.",
		Example: "  " + os.Args[0] + " ports",
		Args:    cobra.NoArgs,
		Run:     run,
	}
}

func run(cmd *cobra.Command, args []string) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("Error listing serial ports: %s", err), feedback.ErrSerial)
	}
	logrus.Debugf("found %d serial ports", len(details))
	feedback.PrintResult(newPortListResult(details))
}

// PortResult describes a serial port
type PortResult struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// PortListResult implements feedback.Result
type PortListResult []*PortResult

func newPortListResult(details []*enumerator.PortDetails) PortListResult {
	res := PortListResult{}
	for _, d := range details {
		port := &PortResult{Name: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			port.VID = strings.ToUpper(d.VID)
			port.PID = strings.ToUpper(d.PID)
			port.SerialNumber = d.SerialNumber
		}
		res = append(res, port)
	}
	return res
}

func (r PortListResult) Data() interface{} {
	return r
}

func (r PortListResult) String() string {
	if len(r) == 0 {
		return "No serial ports found."
	}
	t := table.New()
	t.SetHeader("Port", "VID:PID", "Serial number")
	for _, port := range r {
		id := "-"
		if port.IsUSB {
			id = port.VID + ":" + port.PID
		}
		t.AddRow(port.Name, id, port.SerialNumber)
	}
	return t.Render()
}
