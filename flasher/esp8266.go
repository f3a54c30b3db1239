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

package flasher

import (
	"fmt"
	"io"

	"github.com/arduino/arduino-esploader/esprom"
	"github.com/arduino/arduino-esploader/images"
	"github.com/sirupsen/logrus"
)

// NewESP8266Flasher opens the serial port at portAddress and synchronizes
// with the ROM loader of the chip.
func NewESP8266Flasher(portAddress string, baudRate int, config esprom.Config) (*ESP8266Flasher, error) {
	return newESP8266Flasher(portAddress, NewSerialPort(portAddress, baudRate), config)
}

func newESP8266Flasher(portAddress string, port esprom.Port, config esprom.Config) (*ESP8266Flasher, error) {
	f := &ESP8266Flasher{
		portAddress: portAddress,
		session:     esprom.NewSession(port, config),
	}
	if err := f.session.Connect(); err != nil {
		logrus.Error(err)
		f.session.Close()
		return nil, err
	}
	logrus.Infof("Connected to the ROM loader on %s", portAddress)
	return f, nil
}

type ESP8266Flasher struct {
	portAddress      string
	session          *esprom.Session
	progressCallback func(progress int)
}

// FlashFirmware writes firmware in flash, in the given order, and leaves the
// chip in the ROM loader.
func (f *ESP8266Flasher) FlashFirmware(firmware []*images.Image, flasherOut io.Writer) (*FlashResult, error) {
	total := 0
	for _, img := range firmware {
		total += len(img.Data)
	}
	done := 0
	lastProgress := -1

	res := &FlashResult{}
	for _, img := range firmware {
		logrus.Infof("Flashing %s", img)
		fmt.Fprintf(flasherOut, "Flashing %s\n", img)
		err := f.session.WriteFlash(img.Data, img.Offset, func(written, _ int) {
			if f.progressCallback == nil || total == 0 {
				return
			}
			if progress := (done + written) * 100 / total; progress != lastProgress {
				lastProgress = progress
				f.progressCallback(progress)
			}
		})
		if err != nil {
			logrus.Error(err)
			return nil, err
		}
		done += len(img.Data)
		res.Images = append(res.Images, &ImageResult{
			Name:   img.Name,
			Offset: img.Offset,
			Size:   len(img.Data),
			CRC32:  fmt.Sprintf("%08x", img.CRC32()),
		})
	}

	if err := f.session.FlashFinish(false); err != nil {
		logrus.Error(err)
		return nil, err
	}
	logrus.Infof("Flashed %d images", len(firmware))
	fmt.Fprintf(flasherOut, "Flashed %d images\n", len(firmware))
	return res, nil
}

// Info reads the MAC address, chip id and flash id of the chip
func (f *ESP8266Flasher) Info() (*ChipInfo, error) {
	mac, err := f.session.ReadMAC()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	chipID, err := f.session.ChipID()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	flashID, err := f.session.FlashID()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	return &ChipInfo{
		Port:    f.portAddress,
		MAC:     mac.String(),
		ChipID:  fmt.Sprintf("0x%08x", chipID),
		FlashID: fmt.Sprintf("0x%08x", flashID),
	}, nil
}

// Run leaves the ROM loader, rebooting the chip if reboot is true
func (f *ESP8266Flasher) Run(reboot bool) error {
	if err := f.session.Run(reboot); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}

// Reconnect resets the chip and synchronizes again with the ROM loader
func (f *ESP8266Flasher) Reconnect() error {
	if err := f.session.Reconnect(); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}

func (f *ESP8266Flasher) SetProgressCallback(callback func(progress int)) {
	f.progressCallback = callback
}

// Close the port used by this flasher
func (f *ESP8266Flasher) Close() error {
	return f.session.Close()
}

// Reset pulses the reset line of the chip on portAddress, with the boot line
// asserted if intoBootloader is true, then releases the port.
func Reset(portAddress string, baudRate int, intoBootloader bool, config esprom.Config) error {
	return reset(NewSerialPort(portAddress, baudRate), intoBootloader, config)
}

func reset(port esprom.Port, intoBootloader bool, config esprom.Config) error {
	session := esprom.NewSession(port, config)
	defer session.Close()
	if err := session.Reset(intoBootloader); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}
