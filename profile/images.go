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
	"fmt"

	"github.com/arduino/arduino-esploader/images"
	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
)

// LoadImages reads the enabled images of the profile, downloading the
// remote ones, and returns them sorted by offset.
func (p *Profile) LoadImages() ([]*images.Image, error) {
	var res []*images.Image
	for _, img := range p.Images {
		if !img.IsEnabled() {
			logrus.Debugf("skipping disabled image %s", img.Source())
			continue
		}
		offset, err := images.ParseOffset(img.Offset)
		if err != nil {
			return nil, err
		}

		var file *paths.Path
		if img.URL != "" {
			if file, err = images.DownloadImage(img.URL, img.Checksum, img.Size); err != nil {
				return nil, fmt.Errorf("downloading %s: %w", img.URL, err)
			}
		} else {
			file = paths.New(img.Path)
			if img.Checksum != "" {
				if err := images.VerifyFileChecksum(img.Checksum, file); err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
			}
			if img.Size > 0 {
				if err := images.VerifyFileSize(img.Size, file); err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
			}
		}

		loaded, err := images.Load(file, offset)
		if err != nil {
			return nil, err
		}
		res = append(res, loaded)
	}
	if err := images.SortByOffset(res); err != nil {
		return nil, err
	}
	return res, nil
}
