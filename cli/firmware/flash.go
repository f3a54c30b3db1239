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

package firmware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arduino/arduino-esploader/cli/arguments"
	"github.com/arduino/arduino-esploader/cli/common"
	"github.com/arduino/arduino-esploader/cli/feedback"
	"github.com/arduino/arduino-esploader/cli/globals"
	"github.com/arduino/arduino-esploader/esprom"
	"github.com/arduino/arduino-esploader/flasher"
	"github.com/arduino/arduino-esploader/images"
	"github.com/arduino/arduino-esploader/profile"
	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	commonFlags arguments.Flags // contains port and baud rate
	retries     int
	imageSpecs  []string
	profileFile string
	noReboot    bool
)

// NewFlashCommand creates a new `flash` command
func NewFlashCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "flash",
		Short: "Flashes firmware images to the ESP8266.",
		Long:  "Writes one or more firmware images at the given flash offsets through the ROM loader, then reboots the chip.",
		Example: "" +
			"  " + os.Args[0] + " flash -p /dev/ttyUSB0 -i boot_v1.7.bin@0x0 -i user1.bin@0x1000\n" +
			"  " + os.Args[0] + " flash -p COM10 -b 921600 -i firmware.bin --no-reboot\n" +
			"  " + os.Args[0] + " flash --profile esp.yaml\n",
		Args: cobra.NoArgs,
		Run:  runFlash,
	}
	commonFlags.AddToCommand(command)
	command.Flags().IntVar(&retries, "retries", 1, "Number of attempts in case of upload failure")
	command.Flags().StringArrayVarP(&imageSpecs, "input-file", "i", nil, "Image to write, as path@offset (offset defaults to 0), can be repeated")
	command.Flags().StringVar(&profileFile, "profile", "", "Path of a YAML upload profile")
	command.Flags().BoolVar(&noReboot, "no-reboot", false, "Leave the chip in the ROM loader after flashing")
	return command
}

var (
	newFlasher = func(port string, baud int) (flasher.Flasher, error) {
		f, err := flasher.NewESP8266Flasher(port, baud, esprom.DefaultConfig())
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	validatePort = common.ValidatePort
	retryDelay   = time.Second
)

func runFlash(cmd *cobra.Command, args []string) {
	res, code, err := flash(cmd)
	switch {
	case res != nil && err != nil:
		feedback.FatalResult(res, code)
	case err != nil:
		feedback.FatalError(err, code)
	default:
		feedback.PrintResult(res)
		logrus.Info("Operation completed: success! :-)")
	}
}

// flash writes the images and returns the result and the exit code. The
// port and the downloaded images are released before it returns.
func flash(cmd *cobra.Command) (*flasher.FlashResult, feedback.ExitCode, error) {
	// at the end cleanup the downloaded images
	defer globals.EsploaderPath.RemoveAll()

	reboot := !noReboot
	var firmware []*images.Image
	if profileFile != "" {
		p, err := profile.Load(paths.New(profileFile))
		if err != nil {
			return nil, feedback.ErrNoProfile, fmt.Errorf("loading profile: %w", err)
		}
		if !cmd.Flags().Changed("port") {
			commonFlags.Port = p.Port
		}
		if !cmd.Flags().Changed("baud") {
			commonFlags.Baud = p.Baud
		}
		if !cmd.Flags().Changed("retries") {
			retries = p.Retries
		}
		if !cmd.Flags().Changed("no-reboot") {
			reboot = p.ShouldReboot()
		}
		if firmware, err = p.LoadImages(); err != nil {
			return nil, feedback.ErrNetwork, fmt.Errorf("loading images: %w", err)
		}
	}

	for _, spec := range imageSpecs {
		file, offset, err := images.ParseSpec(spec)
		if err != nil {
			return nil, feedback.ErrBadArgument, err
		}
		img, err := images.Load(file, offset)
		if err != nil {
			return nil, feedback.ErrBadArgument, fmt.Errorf("loading image: %w", err)
		}
		firmware = append(firmware, img)
	}
	if len(firmware) == 0 {
		return nil, feedback.ErrBadArgument, errors.New("no image to flash")
	}
	if err := images.SortByOffset(firmware); err != nil {
		return nil, feedback.ErrBadArgument, err
	}
	if retries < 1 {
		return nil, feedback.ErrBadArgument, errors.New("number of retries should be at least 1")
	}
	if err := common.ValidateFlags(commonFlags); err != nil {
		return nil, feedback.ErrBadArgument, err
	}
	if err := validatePort(commonFlags.Port); err != nil {
		return nil, feedback.ErrSerial, err
	}

	var f flasher.Flasher
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	flasherOut := new(bytes.Buffer)
	for retry := 1; ; retry++ {
		logrus.Infof("Uploading firmware (try %d of %d)", retry, retries)

		res, err := updateFirmware(&f, firmware, reboot, flasherOut)
		if err == nil {
			return res, feedback.Success, nil
		}
		logrus.Error(err)

		if retry >= retries {
			res := &flasher.FlashResult{
				Flasher: &flasher.ExecOutput{Stdout: flasherOut.String()},
				Error:   fmt.Sprintf("Error during firmware flashing: %s", err),
			}
			return res, common.ExitCodeFor(err), err
		}

		logrus.Infof("Waiting %s before retrying...", retryDelay)
		time.Sleep(retryDelay)
	}
}

// updateFirmware connects to the ROM loader, or synchronizes with it again
// if a previous attempt already connected, and writes the images
func updateFirmware(f *flasher.Flasher, firmware []*images.Image, reboot bool, flasherOut *bytes.Buffer) (*flasher.FlashResult, error) {
	if *f == nil {
		esp, err := newFlasher(commonFlags.Port, commonFlags.Baud)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", commonFlags.Port, err)
		}
		*f = esp
	} else if err := (*f).Reconnect(); err != nil {
		return nil, fmt.Errorf("reconnecting to %s: %w", commonFlags.Port, err)
	}

	var out io.Writer = flasherOut
	if feedback.GetFormat() == feedback.Text {
		out = io.MultiWriter(os.Stdout, flasherOut)
		(*f).SetProgressCallback(printProgress)
	}
	res, err := (*f).FlashFirmware(firmware, out)
	if err != nil {
		return nil, err
	}
	if reboot {
		if err := (*f).Run(true); err != nil {
			return nil, err
		}
	}
	res.Flasher = &flasher.ExecOutput{Stdout: flasherOut.String()}
	return res, nil
}

// callback used to print the progress
func printProgress(progress int) {
	fmt.Printf("Flashing progress: %d%%\r", progress)
	if progress == 100 {
		fmt.Println()
	}
}
