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

// Opcode is the operation carried in byte 1 of every message header.
type Opcode byte

// Operations known to the ROM loader
const (
	// OpNone matches any opcode when waiting for a response
	OpNone       Opcode = 0x00
	OpFlashBegin Opcode = 0x02
	OpFlashData  Opcode = 0x03
	OpFlashEnd   Opcode = 0x04
	OpMemBegin   Opcode = 0x05
	OpMemEnd     Opcode = 0x06
	OpMemData    Opcode = 0x07
	OpSync       Opcode = 0x08
	OpWriteReg   Opcode = 0x09
	OpReadReg    Opcode = 0x0a
)

var opcodeNames = map[Opcode]string{
	OpNone:       "NONE",
	OpFlashBegin: "FLASH_BEGIN",
	OpFlashData:  "FLASH_DATA",
	OpFlashEnd:   "FLASH_END",
	OpMemBegin:   "MEM_BEGIN",
	OpMemEnd:     "MEM_END",
	OpMemData:    "MEM_DATA",
	OpSync:       "SYNC",
	OpWriteReg:   "WRITE_REG",
	OpReadReg:    "READ_REG",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", byte(op))
}

// Message kinds, header byte 0
const (
	kindCommand  byte = 0x00
	kindResponse byte = 0x01
)

// Message header layout
const (
	HeaderSize      = 8
	headerKind      = 0
	headerOp        = 1
	headerLen       = 2
	headerChecksum  = 4
	headerValue     = 4
	maxPayloadSize  = 0xFFFF
	statusPairBytes = 2
)

// Memory geometry
const (
	// FlashBlockSize is the size of each FLASH_DATA block.
	FlashBlockSize = 0x400
	// RAMBlockSize is the maximum size of each MEM_DATA block.
	RAMBlockSize = 0x1800
	// FlashSectorSize is the minimum erase unit.
	FlashSectorSize = 0x1000
	// FlashSectorsPerBlock is the number of sectors in an erase block.
	FlashSectorsPerBlock = 16
)

// DefaultBaudRate is the rate used to talk to the ROM loader. The ROM
// auto-bauds so other values work too.
const DefaultBaudRate = 115200

// ChecksumMagic is the seed the ROM loader uses for data checksums.
const ChecksumMagic = 0xEF

// OTP registers holding the factory MAC
const (
	RegOTPMAC0 = 0x3ff00050
	RegOTPMAC1 = 0x3ff00054
	RegOTPMAC3 = 0x3ff0005c
)

// SPI controller registers used to query the flash chip id
const (
	regSPICommand  = 0x60000200
	regSPIW0       = 0x60000240
	spiCommandRDID = 0x10000000
)

// syncPayload is the fixed pattern the ROM loader auto-bauds on.
var syncPayload = func() []byte {
	p := make([]byte, 36)
	copy(p, []byte{0x07, 0x07, 0x12, 0x20})
	for i := 4; i < len(p); i++ {
		p[i] = 0x55
	}
	return p
}()
