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
	"encoding/binary"
	"fmt"
	"net"
)

// ReadRegister reads a 32 bit register of the chip.
func (s *Session) ReadRegister(address uint32) (uint32, error) {
	if err := s.requireReady(); err != nil {
		return 0, err
	}
	addr := make([]byte, 4)
	binary.LittleEndian.PutUint32(addr, address)
	resp, err := s.SendCommand(OpReadReg, addr, 0)
	if err != nil {
		return 0, fmt.Errorf("reading register 0x%08x: %w", address, err)
	}
	if err := resp.checkStatus(); err != nil {
		return 0, fmt.Errorf("reading register 0x%08x: %w", address, err)
	}
	return resp.Value, nil
}

// WriteRegister writes value to the bits of the register selected by mask,
// then waits delayUS microseconds on the chip side.
func (s *Session) WriteRegister(address, value, mask, delayUS uint32) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if _, err := s.command(OpWriteReg, nil, address, value, mask, delayUS); err != nil {
		return fmt.Errorf("writing register 0x%08x: %w", address, err)
	}
	return nil
}

// MAC is a station MAC address.
type MAC [6]byte

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// OUIs used by chips whose OTP does not store one
var ouiBySelector = map[byte][3]byte{
	0: {0x18, 0xfe, 0x34},
	1: {0xac, 0xd0, 0x74},
}

// DeriveMAC builds the MAC address from the OTP words MAC0, MAC1 and MAC3.
// When MAC3 is zero the OUI is taken from a table indexed by bits 23..16 of
// MAC1.
func DeriveMAC(mac0, mac1, mac3 uint32) (MAC, error) {
	var mac MAC
	if mac3 != 0 {
		mac[0] = byte(mac3 >> 16)
		mac[1] = byte(mac3 >> 8)
		mac[2] = byte(mac3)
	} else {
		selector := byte(mac1 >> 16)
		oui, ok := ouiBySelector[selector]
		if !ok {
			return MAC{}, &UnknownVendorError{Selector: selector}
		}
		copy(mac[:3], oui[:])
	}
	mac[3] = byte(mac1 >> 8)
	mac[4] = byte(mac1)
	mac[5] = byte(mac0 >> 24)
	return mac, nil
}

// ReadMAC reads the factory MAC address from OTP.
func (s *Session) ReadMAC() (MAC, error) {
	var words [3]uint32
	for i, reg := range []uint32{RegOTPMAC0, RegOTPMAC1, RegOTPMAC3} {
		v, err := s.ReadRegister(reg)
		if err != nil {
			return MAC{}, err
		}
		words[i] = v
	}
	return DeriveMAC(words[0], words[1], words[2])
}

// ChipID returns the chip identifier stored in OTP.
func (s *Session) ChipID() (uint32, error) {
	id0, err := s.ReadRegister(RegOTPMAC0)
	if err != nil {
		return 0, err
	}
	id1, err := s.ReadRegister(RegOTPMAC1)
	if err != nil {
		return 0, err
	}
	return id0>>24 | (id1&0xffffff)<<8, nil
}

// FlashID reads the manufacturer and device id of the SPI flash chip.
func (s *Session) FlashID() (uint32, error) {
	if err := s.FlashBegin(0, 0); err != nil {
		return 0, err
	}
	if err := s.WriteRegister(regSPIW0, 0, 0xffffffff, 0); err != nil {
		return 0, err
	}
	if err := s.WriteRegister(regSPICommand, spiCommandRDID, 0xffffffff, 0); err != nil {
		return 0, err
	}
	id, err := s.ReadRegister(regSPIW0)
	if err != nil {
		return 0, err
	}
	if err := s.FlashFinish(false); err != nil {
		return 0, err
	}
	return id, nil
}
