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

	"github.com/arduino/arduino-cli/table"
	"github.com/arduino/arduino-esploader/images"
)

type FlasherError struct {
	err string
}

func (e FlasherError) Error() string {
	return e.err
}

// Flasher writes firmware images on a board and restarts it
type Flasher interface {
	FlashFirmware(firmware []*images.Image, flasherOut io.Writer) (*FlashResult, error)
	SetProgressCallback(callback func(progress int))
	Run(reboot bool) error
	Reconnect() error
	Close() error
}

// ExecOutput is the output of a flashing step
type ExecOutput struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// ImageResult describes an image written in flash
type ImageResult struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
	Size   int    `json:"size"`
	CRC32  string `json:"crc32"`
}

// FlashResult implements feedback.ErrorResult
type FlashResult struct {
	Flasher *ExecOutput    `json:"flasher,omitempty"`
	Images  []*ImageResult `json:"images,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (r *FlashResult) Data() interface{} {
	return r
}

func (r *FlashResult) String() string {
	if len(r.Images) == 0 {
		return ""
	}
	t := table.New()
	t.SetHeader("Offset", "Image", "Size", "CRC32")
	for _, img := range r.Images {
		t.AddRow(fmt.Sprintf("0x%06x", img.Offset), img.Name, fmt.Sprintf("%d", img.Size), img.CRC32)
	}
	return t.Render()
}

func (r *FlashResult) ErrorString() string {
	return r.Error
}

// ChipInfo implements feedback.Result
type ChipInfo struct {
	Port    string `json:"port"`
	MAC     string `json:"mac"`
	ChipID  string `json:"chip_id"`
	FlashID string `json:"flash_id"`
}

func (i *ChipInfo) Data() interface{} {
	return i
}

func (i *ChipInfo) String() string {
	t := table.New()
	t.AddRow("Port:", i.Port)
	t.AddRow("MAC:", i.MAC)
	t.AddRow("Chip ID:", i.ChipID)
	t.AddRow("Flash ID:", i.FlashID)
	return t.Render()
}
