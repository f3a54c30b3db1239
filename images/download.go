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
	"bytes"
	"crypto"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strings"

	"github.com/arduino/arduino-esploader/cli/globals"
	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/snksoft/crc"
	"go.bug.st/downloader/v2"
)

// DownloadImage downloads the image at url in the cache directory and checks
// it against checksum and size. Verification is skipped for an empty
// checksum or a size of 0.
func DownloadImage(url, checksum string, size int64) (*paths.Path, error) {
	imagePath := globals.EsploaderPath.Join("images", path.Base(url))
	if err := imagePath.Parent().MkdirAll(); err != nil {
		logrus.Error(err)
		return nil, err
	}
	if err := imagePath.WriteFile(nil); err != nil {
		logrus.Error(err)
		return nil, err
	}
	d, err := downloader.Download(imagePath.String(), url)
	if err != nil {
		logrus.Error(err)
		return nil, err
	}
	if err := Download(d); err != nil {
		logrus.Error(err)
		return nil, err
	}
	if checksum != "" {
		if err := VerifyFileChecksum(checksum, imagePath); err != nil {
			logrus.Error(err)
			return nil, err
		}
	}
	if size > 0 {
		if err := VerifyFileSize(size, imagePath); err != nil {
			logrus.Error(err)
			return nil, err
		}
	}
	logrus.Debugf("image downloaded in %s", imagePath)
	return imagePath, nil
}

// Download will take a downloader.Downloader as parameter. It will Download the file specified in the downloader
func Download(d *downloader.Downloader) error {
	if d == nil {
		// This signal means that the file is already downloaded
		return nil
	}
	if err := d.Run(); err != nil {
		return fmt.Errorf("failed to download file from %s : %s", d.URL, err)
	}
	// The URL is not reachable for some reason
	if d.Resp.StatusCode >= 400 && d.Resp.StatusCode <= 599 {
		return errors.New(d.Resp.Status)
	}
	return nil
}

// VerifyFileChecksum checks filePath against a checksum in the form ALGO:hex,
// ALGO being one of SHA-256, SHA-1, MD5 or CRC32.
func VerifyFileChecksum(checksum string, filePath *paths.Path) error {
	if checksum == "" {
		return fmt.Errorf("missing checksum for: %s", filePath)
	}
	split := strings.SplitN(checksum, ":", 2)
	if len(split) != 2 {
		return fmt.Errorf("invalid checksum format: %s", checksum)
	}
	digest, err := hex.DecodeString(split[1])
	if err != nil {
		return fmt.Errorf("invalid hash '%s': %s", split[1], err)
	}

	var algo hash.Hash
	switch split[0] {
	case "SHA-256":
		algo = crypto.SHA256.New()
	case "SHA-1":
		algo = crypto.SHA1.New()
	case "MD5":
		algo = crypto.MD5.New()
	case "CRC32":
		return verifyFileCRC32(digest, filePath)
	default:
		return fmt.Errorf("unsupported hash algorithm: %s", split[0])
	}

	file, err := filePath.Open()
	if err != nil {
		return fmt.Errorf("opening file: %s", err)
	}
	defer file.Close()
	if _, err := io.Copy(algo, file); err != nil {
		return fmt.Errorf("computing hash: %s", err)
	}
	if !bytes.Equal(algo.Sum(nil), digest) {
		return fmt.Errorf("file hash differs from expected hash")
	}
	return nil
}

func verifyFileCRC32(digest []byte, filePath *paths.Path) error {
	if len(digest) != 4 {
		return fmt.Errorf("invalid CRC32 length: %d bytes", len(digest))
	}
	data, err := filePath.ReadFile()
	if err != nil {
		return fmt.Errorf("opening file: %s", err)
	}
	h := crc.NewHashWithTable(crcTable)
	h.Update(data)
	if h.CRC32() != binary.BigEndian.Uint32(digest) {
		return fmt.Errorf("file hash differs from expected hash")
	}
	return nil
}

// VerifyFileSize checks that filePath is exactly size bytes long
func VerifyFileSize(size int64, filePath *paths.Path) error {
	info, err := filePath.Stat()
	if err != nil {
		return fmt.Errorf("getting file info: %s", err)
	}
	if info.Size() != size {
		return fmt.Errorf("file size %d differs from expected size %d", info.Size(), size)
	}
	return nil
}
