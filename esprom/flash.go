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

package esprom

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

// FlashPlan is the erase geometry of a flash write.
type FlashPlan struct {
	BlockCount  uint32
	SectorCount uint32
	EraseSize   uint32
}

// NewFlashPlan computes the blocks to send and the size to erase to write
// size bytes at offset.
//
// The ROM erase routine erases the sectors of a partial head block twice
// over, so when the image ends inside the first erase block only half of its
// sectors (rounded up) are requested.
func NewFlashPlan(size, offset uint32) FlashPlan {
	blocks := (size + FlashBlockSize - 1) / FlashBlockSize
	sectors := (size + FlashSectorSize - 1) / FlashSectorSize
	startSector := offset / FlashSectorSize

	headSectors := FlashSectorsPerBlock - startSector%FlashSectorsPerBlock
	if sectors < headSectors {
		headSectors = sectors
	}

	var eraseSectors uint32
	if sectors < 2*headSectors {
		eraseSectors = (sectors + 1) / 2
	} else {
		eraseSectors = sectors - headSectors
	}
	return FlashPlan{
		BlockCount:  blocks,
		SectorCount: sectors,
		EraseSize:   eraseSectors * FlashSectorSize,
	}
}

// FlashBegin erases the flash needed to write size bytes at offset and
// prepares the loader to receive the data blocks.
func (s *Session) FlashBegin(size, offset uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	plan := NewFlashPlan(size, offset)
	logrus.Debugf("flash begin: %d bytes at 0x%x, %d blocks, erasing %d bytes", size, offset, plan.BlockCount, plan.EraseSize)
	if _, err := s.command(OpFlashBegin, nil, plan.EraseSize, plan.BlockCount, FlashBlockSize, offset); err != nil {
		return fmt.Errorf("flash begin: %w", err)
	}
	return nil
}

// FlashBlock sends the block with sequence number seq.
func (s *Session) FlashBlock(data []byte, seq uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if _, err := s.command(OpFlashData, data, uint32(len(data)), seq, 0, 0); err != nil {
		return fmt.Errorf("flash block %d: %w", seq, err)
	}
	return nil
}

// FlashFinish ends the flash write. The chip reboots if reboot is true and
// stays in the loader otherwise.
func (s *Session) FlashFinish(reboot bool) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	var stay uint32 = 1
	if reboot {
		stay = 0
	}
	if _, err := s.command(OpFlashEnd, nil, stay); err != nil {
		return fmt.Errorf("flash end: %w", err)
	}
	return nil
}

// Run leaves the loader and starts the application in flash.
func (s *Session) Run(reboot bool) error {
	if err := s.FlashBegin(0, 0); err != nil {
		return err
	}
	return s.FlashFinish(reboot)
}

// WriteFlash writes data at offset, padding the last block with 0xFF.
// progress, if not nil, is called after each block with the bytes written so far.
// FlashFinish is left to the caller so that several images can be written
// before rebooting.
func (s *Session) WriteFlash(data []byte, offset uint32, progress func(written, total int)) error {
	if err := s.FlashBegin(uint32(len(data)), offset); err != nil {
		return err
	}
	for seq, start := uint32(0), 0; start < len(data); seq, start = seq+1, start+FlashBlockSize {
		end := start + FlashBlockSize
		if end > len(data) {
			end = len(data)
		}
		block := data[start:end]
		if len(block) < FlashBlockSize {
			block = append(append([]byte{}, block...), bytes.Repeat([]byte{0xFF}, FlashBlockSize-len(block))...)
		}
		if err := s.FlashBlock(block, seq); err != nil {
			return err
		}
		if progress != nil {
			progress(end, len(data))
		}
	}
	return nil
}
