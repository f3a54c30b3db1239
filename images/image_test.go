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
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name string, data []byte) *paths.Path {
	file := paths.New(t.TempDir()).Join(name)
	require.NoError(t, file.WriteFile(data))
	return file
}

func TestLoad(t *testing.T) {
	file := writeTestFile(t, "user1.bin", []byte("123456789"))

	img, err := Load(file, 0x1000)
	require.NoError(t, err)
	require.Equal(t, "user1.bin", img.Name)
	require.Equal(t, uint32(0x1000), img.Offset)
	require.Equal(t, uint32(0x1009), img.End())
	require.Equal(t, uint32(0xCBF43926), img.CRC32())
	require.Equal(t, "user1.bin (9 bytes at 0x001000)", img.String())

	_, err = Load(writeTestFile(t, "empty.bin", nil), 0)
	require.Error(t, err)
	_, err = Load(file.Parent().Join("missing.bin"), 0)
	require.Error(t, err)
}

func TestParseOffset(t *testing.T) {
	for s, want := range map[string]uint32{
		"0":          0,
		"4096":       0x1000,
		"0x001000":   0x1000,
		"0x3FC000":   0x3FC000,
		" 0xFFE000 ": 0xFFE000,
	} {
		offset, err := ParseOffset(s)
		require.NoError(t, err, s)
		require.Equal(t, want, offset, s)
	}
	for _, s := range []string{"", "0x", "-1", "0x100000000", "ten"} {
		_, err := ParseOffset(s)
		require.Error(t, err, s)
	}
}

func TestParseSpec(t *testing.T) {
	file, offset, err := ParseSpec("build/eagle.irom0text.bin@0x10000")
	require.NoError(t, err)
	require.Equal(t, "build/eagle.irom0text.bin", file.String())
	require.Equal(t, uint32(0x10000), offset)

	file, offset, err = ParseSpec("boot.bin")
	require.NoError(t, err)
	require.Equal(t, "boot.bin", file.String())
	require.Equal(t, uint32(0), offset)

	_, _, err = ParseSpec("@0x1000")
	require.Error(t, err)
	_, _, err = ParseSpec("boot.bin@nowhere")
	require.Error(t, err)
}

func TestSortByOffset(t *testing.T) {
	boot := &Image{Name: "boot", Offset: 0, Data: make([]byte, 0x1000)}
	user := &Image{Name: "user", Offset: 0x1000, Data: make([]byte, 10)}
	esp := &Image{Name: "esp_init", Offset: 0x3FC000, Data: make([]byte, 128)}

	list := []*Image{esp, user, boot}
	require.NoError(t, SortByOffset(list))
	require.Equal(t, []*Image{boot, user, esp}, list)

	big := &Image{Name: "big", Offset: 0x800, Data: make([]byte, 0x1000)}
	require.Error(t, SortByOffset([]*Image{boot, big}))
}
