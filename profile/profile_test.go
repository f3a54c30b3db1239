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

package profile

import (
	"testing"

	"github.com/arduino/arduino-esploader/esprom"
	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`
port: /dev/ttyUSB0
images:
  - path: boot_v1.7.bin
    offset: 0x000000
  - path: user1.bin
    offset: 0x001000
    checksum: CRC32:cbf43926
  - url: https://example.com/esp_init_data_default.bin
    offset: 0x3FC000
    enabled: false
`))
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", p.Port)
	require.Equal(t, esprom.DefaultBaudRate, p.Baud)
	require.Equal(t, 1, p.Retries)
	require.True(t, p.ShouldReboot())
	require.Len(t, p.Images, 3)
	require.Equal(t, "0x001000", p.Images[1].Offset)
	require.True(t, p.Images[0].IsEnabled())
	require.False(t, p.Images[2].IsEnabled())
	require.Equal(t, "https://example.com/esp_init_data_default.bin", p.Images[2].Source())

	p, err = Parse([]byte("baud: 921600\nreboot: false\nretries: 3\n"))
	require.NoError(t, err)
	require.Equal(t, 921600, p.Baud)
	require.Equal(t, 3, p.Retries)
	require.False(t, p.ShouldReboot())
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":   "port: /dev/ttyUSB0\nspeed: 9600\n",
		"not yaml":        "images: [",
		"negative baud":   "baud: -1\n",
		"negative retry":  "retries: -2\n",
		"no source":       "images:\n  - offset: 0x1000\n",
		"two sources":     "images:\n  - path: a.bin\n    url: http://x/a.bin\n    offset: 0\n",
		"bad offset":      "images:\n  - path: a.bin\n    offset: zero\n",
		"missing offset":  "images:\n  - path: a.bin\n",
		"unaligned":       "images:\n  - path: a.bin\n    offset: 0x1800\n",
		"negative size":   "images:\n  - path: a.bin\n    offset: 0\n    size: -4\n",
		"all disabled":    "images:\n  - path: a.bin\n    offset: 0\n    enabled: false\n",
		"overlap by size": "images:\n  - path: a.bin\n    offset: 0\n    size: 8192\n  - path: b.bin\n    offset: 0x1000\n    size: 10\n",
	}
	for name, data := range tests {
		_, err := Parse([]byte(data))
		require.Error(t, err, name)
	}
}

func TestValidateIgnoresDisabledOverlap(t *testing.T) {
	no := false
	p := &Profile{Images: []Image{
		{Path: "a.bin", Offset: "0", Size: 8192},
		{Path: "b.bin", Offset: "0x1000", Size: 10, Enabled: &no},
	}}
	require.NoError(t, Validate(p))
}

func TestStandardOffsetsAreAligned(t *testing.T) {
	require.Len(t, StandardOffsets, 18)
	for _, offset := range StandardOffsets {
		require.Zero(t, offset%esprom.FlashSectorSize)
	}
}

func TestLoadImages(t *testing.T) {
	dir := paths.New(t.TempDir())
	require.NoError(t, dir.Join("user1.bin").WriteFile([]byte("123456789")))
	require.NoError(t, dir.Join("boot.bin").WriteFile([]byte{0xE9, 0x03}))
	require.NoError(t, dir.Join("blank.bin").WriteFile([]byte{0xFF}))
	file := dir.Join("esp.yaml")
	require.NoError(t, file.WriteFile([]byte(`
images:
  - path: user1.bin
    offset: 0x1000
    checksum: CRC32:cbf43926
    size: 9
  - path: boot.bin
    offset: 0
  - path: blank.bin
    offset: 0x3FE000
    enabled: false
`)))

	p, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, dir.Join("boot.bin").String(), p.Images[1].Path)

	list, err := p.LoadImages()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "boot.bin", list[0].Name)
	require.Equal(t, uint32(0), list[0].Offset)
	require.Equal(t, "user1.bin", list[1].Name)
	require.Equal(t, uint32(0x1000), list[1].Offset)

	p.Images[0].Checksum = "CRC32:00000000"
	_, err = p.LoadImages()
	require.Error(t, err)

	p.Images[0].Checksum = ""
	p.Images[0].Size = 10
	_, err = p.LoadImages()
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(paths.New(t.TempDir()).Join("missing.yaml"))
	require.Error(t, err)
}
