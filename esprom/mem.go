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

import "fmt"

// MemBegin prepares the loader to receive size bytes in RAM at offset, in
// blocks of blockSize bytes.
func (s *Session) MemBegin(size, blocks, blockSize, offset uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if _, err := s.command(OpMemBegin, nil, size, blocks, blockSize, offset); err != nil {
		return fmt.Errorf("mem begin: %w", err)
	}
	return nil
}

// MemBlock sends the RAM block with sequence number seq.
func (s *Session) MemBlock(data []byte, seq uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if _, err := s.command(OpMemData, data, uint32(len(data)), seq, 0, 0); err != nil {
		return fmt.Errorf("mem block %d: %w", seq, err)
	}
	return nil
}

// MemEnd ends the RAM write and jumps to entryPoint. An entry point of zero
// means the loader must not start any code.
func (s *Session) MemEnd(entryPoint uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	var noEntry uint32
	if entryPoint == 0 {
		noEntry = 1
	}
	if _, err := s.command(OpMemEnd, nil, noEntry, entryPoint); err != nil {
		return fmt.Errorf("mem end: %w", err)
	}
	return nil
}

// LoadRAM writes data in RAM at offset and jumps to entryPoint.
func (s *Session) LoadRAM(data []byte, offset, entryPoint uint32) error {
	blocks := (uint32(len(data)) + RAMBlockSize - 1) / RAMBlockSize
	if err := s.MemBegin(uint32(len(data)), blocks, RAMBlockSize, offset); err != nil {
		return err
	}
	for seq := uint32(0); seq < blocks; seq++ {
		start := int(seq) * RAMBlockSize
		end := start + RAMBlockSize
		if end > len(data) {
			end = len(data)
		}
		if err := s.MemBlock(data[start:end], seq); err != nil {
			return err
		}
	}
	return s.MemEnd(entryPoint)
}
