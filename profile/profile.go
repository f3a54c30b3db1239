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

// Package profile loads upload profiles: YAML files listing the port
// settings and the images to write in flash.
//
//	port: /dev/ttyUSB0
//	baud: 115200
//	reboot: true
//	images:
//	  - path: boot_v1.7.bin
//	    offset: 0x000000
//	  - url: https://example.com/user1.bin
//	    offset: 0x001000
//	    checksum: SHA-256:...
//	  - path: esp_init_data_default.bin
//	    offset: 0x3FC000
//	    enabled: false
package profile

import (
	"bytes"
	"fmt"

	"github.com/arduino/arduino-esploader/esprom"
	"github.com/arduino/arduino-esploader/images"
	"github.com/arduino/go-paths-helper"
	"gopkg.in/yaml.v3"
)

// StandardOffsets are the flash offsets commonly used by ESP8266 firmwares
var StandardOffsets = []uint32{
	0x000000, 0x001000, 0x010000, 0x03C000, 0x03E000, 0x040000,
	0x07C000, 0x07E000, 0x0FC000, 0x0FE000, 0x1FC000, 0x1FE000,
	0x3FC000, 0x3FE000, 0x7FC000, 0x7FE000, 0xFFC000, 0xFFE000,
}

// Profile is an upload profile
type Profile struct {
	Port    string  `yaml:"port"`
	Baud    int     `yaml:"baud"`
	Reboot  *bool   `yaml:"reboot"`
	Retries int     `yaml:"retries"`
	Images  []Image `yaml:"images"`
}

// Image is a firmware row of the profile
type Image struct {
	Path     string `yaml:"path"`
	URL      string `yaml:"url"`
	Offset   string `yaml:"offset"`
	Enabled  *bool  `yaml:"enabled"`
	Checksum string `yaml:"checksum"`
	Size     int64  `yaml:"size"`
}

// IsEnabled returns false only if the image has been explicitly disabled
func (i *Image) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// Source returns the location of the image, for messages
func (i *Image) Source() string {
	if i.URL != "" {
		return i.URL
	}
	return i.Path
}

// ShouldReboot returns the reboot setting, true if not specified
func (p *Profile) ShouldReboot() bool {
	return p.Reboot == nil || *p.Reboot
}

// Load reads, validates and normalizes the profile at file. Relative image
// paths are resolved against the directory of the profile.
func Load(file *paths.Path) (*Profile, error) {
	data, err := file.ReadFile()
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	for i := range p.Images {
		img := &p.Images[i]
		if img.Path != "" && !paths.New(img.Path).IsAbs() {
			img.Path = file.Parent().Join(img.Path).String()
		}
	}
	return p, nil
}

// Parse decodes a profile, then validates and normalizes it
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	Normalize(p)
	return p, nil
}

// Normalize fills the settings left empty with their defaults.
// It must be called after Validate.
func Normalize(p *Profile) {
	if p.Baud == 0 {
		p.Baud = esprom.DefaultBaudRate
	}
	if p.Retries == 0 {
		p.Retries = 1
	}
}

// Validate checks the profile without modifying it
func Validate(p *Profile) error {
	if p.Baud < 0 {
		return fmt.Errorf("invalid baud rate %d", p.Baud)
	}
	if p.Retries < 0 {
		return fmt.Errorf("invalid number of retries %d", p.Retries)
	}

	type span struct {
		start, end uint32
		source     string
	}
	var spans []span
	enabled := 0
	for n, img := range p.Images {
		if img.Path == "" && img.URL == "" {
			return fmt.Errorf("image %d: one of path or url is required", n+1)
		}
		if img.Path != "" && img.URL != "" {
			return fmt.Errorf("image %d: path and url are mutually exclusive", n+1)
		}
		if img.Size < 0 {
			return fmt.Errorf("image %d: invalid size %d", n+1, img.Size)
		}
		offset, err := images.ParseOffset(img.Offset)
		if err != nil {
			return fmt.Errorf("image %d: %w", n+1, err)
		}
		if offset%esprom.FlashSectorSize != 0 {
			return fmt.Errorf("image %d: offset 0x%x is not aligned to a %d bytes sector", n+1, offset, esprom.FlashSectorSize)
		}
		if !img.IsEnabled() {
			continue
		}
		enabled++

		// the size of local files is only known when they are read
		if img.Size == 0 {
			continue
		}
		cur := span{start: offset, end: offset + uint32(img.Size), source: img.Source()}
		for _, s := range spans {
			if cur.start < s.end && s.start < cur.end {
				return fmt.Errorf("image %s at 0x%x overlaps with %s at 0x%x", cur.source, cur.start, s.source, s.start)
			}
		}
		spans = append(spans, cur)
	}
	if len(p.Images) > 0 && enabled == 0 {
		return fmt.Errorf("all images are disabled")
	}
	return nil
}
