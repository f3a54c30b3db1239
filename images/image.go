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

package images

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/snksoft/crc"
)

var crcTable = crc.NewTable(crc.CRC32)

// Image is a binary to be written in flash at Offset
type Image struct {
	Name   string
	Offset uint32
	Data   []byte
}

// End returns the first flash address after the image
func (i *Image) End() uint32 {
	return i.Offset + uint32(len(i.Data))
}

// CRC32 returns the IEEE CRC-32 of the image content
func (i *Image) CRC32() uint32 {
	h := crc.NewHashWithTable(crcTable)
	h.Update(i.Data)
	return h.CRC32()
}

func (i *Image) String() string {
	return fmt.Sprintf("%s (%d bytes at 0x%06x)", i.Name, len(i.Data), i.Offset)
}

// Load reads the image file at path, to be written at offset
func Load(path *paths.Path, offset uint32) (*Image, error) {
	logrus.Debugf("Reading file %s", path)
	data, err := path.ReadFile()
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	if len(data) == 0 {
		err = fmt.Errorf("image %s is empty", path)
		logrus.Error(err)
		return nil, err
	}
	return &Image{Name: path.Base(), Offset: offset, Data: data}, nil
}

// ParseOffset parses a flash offset written in decimal, or in hexadecimal
// with the 0x prefix, like 0x001000.
func ParseOffset(s string) (uint32, error) {
	offset, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return uint32(offset), nil
}

// ParseSpec splits an image argument in the form path@offset. The offset
// defaults to 0 when omitted.
func ParseSpec(spec string) (*paths.Path, uint32, error) {
	file := spec
	var offset uint32
	if i := strings.LastIndex(spec, "@"); i >= 0 {
		file = spec[:i]
		var err error
		if offset, err = ParseOffset(spec[i+1:]); err != nil {
			return nil, 0, err
		}
	}
	if file == "" {
		return nil, 0, fmt.Errorf("missing file name in %q", spec)
	}
	return paths.New(file), offset, nil
}

// SortByOffset sorts the images by offset and fails if two of them overlap
func SortByOffset(images []*Image) error {
	sort.SliceStable(images, func(i, j int) bool { return images[i].Offset < images[j].Offset })
	for i := 1; i < len(images); i++ {
		prev, cur := images[i-1], images[i]
		if cur.Offset < prev.End() {
			return fmt.Errorf("image %s overlaps with %s", cur, prev)
		}
	}
	return nil
}
