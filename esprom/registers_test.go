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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadRegister(t *testing.T) {
	d := &fakeDevice{handler: loader(map[uint32]uint32{0x3ff00050: 0x12345678})}
	s := readySession(d)

	v, err := s.ReadRegister(0x3ff00050)
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), v)
	require.Equal(t, []byte{0x50, 0x00, 0xf0, 0x3f}, d.commands[0].payload)
	require.Equal(t, uint32(0), d.commands[0].checksum)
}

func TestReadRegisterRejected(t *testing.T) {
	for _, status := range [][]byte{{1, 0}, {0, 1}, {1, 1}} {
		d := &fakeDevice{handler: func(d *fakeDevice, c command) { d.reply(c.op, 0xFFFFFFFF, status...) }}
		s := readySession(d)

		_, err := s.ReadRegister(RegOTPMAC1)
		var rejected *DeviceRejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, OpReadReg, rejected.Opcode)
		// a rejection is not retried
		require.Len(t, d.commands, 1)
	}
}

func TestReadRegisterNoResponse(t *testing.T) {
	d := &fakeDevice{}
	s := readySession(d)

	_, err := s.ReadRegister(RegOTPMAC1)
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestWriteRegister(t *testing.T) {
	d := &fakeDevice{handler: loader(nil)}
	s := readySession(d)

	require.NoError(t, s.WriteRegister(0x60000240, 0x11, 0xffffffff, 5))
	c := d.commands[0]
	require.Equal(t, OpWriteReg, c.op)
	require.Len(t, c.payload, 16)
	require.Equal(t, uint32(0x60000240), c.field(0))
	require.Equal(t, uint32(0x11), c.field(1))
	require.Equal(t, uint32(0xffffffff), c.field(2))
	require.Equal(t, uint32(5), c.field(3))

	d.handler = func(d *fakeDevice, c command) { d.reply(c.op, 0, 1, 6) }
	var rejected *DeviceRejectedError
	require.ErrorAs(t, s.WriteRegister(0x60000240, 0, 0, 0), &rejected)
}

func TestDeriveMAC(t *testing.T) {
	tests := []struct {
		name             string
		mac0, mac1, mac3 uint32
		want             string
	}{
		{"oui in otp", 0xAB000000, 0x00123456, 0x005CCF7F, "5c:cf:7f:34:56:ab"},
		{"selector 0", 0x9A000000, 0x0000BEEF, 0, "18:fe:34:be:ef:9a"},
		{"selector 1", 0x01000000, 0x00010203, 0, "ac:d0:74:02:03:01"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mac, err := DeriveMAC(test.mac0, test.mac1, test.mac3)
			require.NoError(t, err)
			require.Equal(t, test.want, mac.String())
		})
	}
}

func TestDeriveMACUnknownVendor(t *testing.T) {
	_, err := DeriveMAC(0, 0x00020000, 0)
	var unknown *UnknownVendorError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, byte(2), unknown.Selector)

	// the OUI register takes precedence over the selector
	_, err = DeriveMAC(0, 0x00020000, 0x00010203)
	require.NoError(t, err)
}

func TestReadMAC(t *testing.T) {
	d := &fakeDevice{handler: loader(map[uint32]uint32{
		RegOTPMAC0: 0x42000000,
		RegOTPMAC1: 0x0001A1B2,
	})}
	s := readySession(d)

	mac, err := s.ReadMAC()
	require.NoError(t, err)
	require.Equal(t, MAC{0xac, 0xd0, 0x74, 0xA1, 0xB2, 0x42}, mac)

	var read []uint32
	for _, c := range d.commandsWith(OpReadReg) {
		read = append(read, c.field(0))
	}
	require.Equal(t, []uint32{RegOTPMAC0, RegOTPMAC1, RegOTPMAC3}, read)
}

func TestChipID(t *testing.T) {
	d := &fakeDevice{handler: loader(map[uint32]uint32{
		RegOTPMAC0: 0xAB000000,
		RegOTPMAC1: 0xFF123456,
	})}
	s := readySession(d)

	id, err := s.ChipID()
	require.NoError(t, err)
	require.Equal(t, uint32(0x123456AB), id)
}

func TestFlashID(t *testing.T) {
	d := &fakeDevice{handler: loader(map[uint32]uint32{regSPIW0: 0x001640EF})}
	s := readySession(d)

	id, err := s.FlashID()
	require.NoError(t, err)
	require.Equal(t, uint32(0x001640EF), id)

	var ops []Opcode
	for _, c := range d.commands {
		ops = append(ops, c.op)
	}
	require.Equal(t, []Opcode{OpFlashBegin, OpWriteReg, OpWriteReg, OpReadReg, OpFlashEnd}, ops)
	require.Equal(t, uint32(spiCommandRDID), d.commands[2].field(1))
	require.Equal(t, uint32(1), d.commands[4].field(0))
}
