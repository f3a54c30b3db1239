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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResetSequence(t *testing.T) {
	for _, bootloader := range []bool{true, false} {
		d := &fakeDevice{}
		var slept []time.Duration
		config := testConfig()
		config.Sleep = func(d time.Duration) { slept = append(slept, d) }
		s := NewSession(d, config)

		require.NoError(t, s.Reset(bootloader))
		require.Equal(t, []lines{
			{dtr: true, rts: false},
			{dtr: false, rts: bootloader},
			{dtr: false, rts: false},
		}, d.lines)
		require.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, slept)
		require.True(t, d.IsOpen(), "reset leaves the port open")
		require.Equal(t, Disconnected, s.State())
	}
}

func TestResetFailure(t *testing.T) {
	d := &fakeDevice{lineErr: errLineStuck}
	s := NewSession(d, testConfig())

	err := s.Reset(true)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.ErrorIs(t, err, errLineStuck)
	require.Empty(t, d.lines)

	d = &fakeDevice{openErr: errors.New("busy")}
	s = NewSession(d, testConfig())
	require.Error(t, s.Reset(false))
}

func TestConnect(t *testing.T) {
	d := &fakeDevice{handler: loader(nil)}
	s := NewSession(d, testConfig())

	require.NoError(t, s.Connect())
	require.Equal(t, Ready, s.State())
	require.Equal(t, 1, d.opens)
	require.Equal(t, 1, d.flushes)

	// one reset probe, then one verified probe
	syncs := d.commandsWith(OpSync)
	require.Len(t, syncs, 2)
	for _, c := range syncs {
		require.Equal(t, syncPayload, c.payload)
		require.Equal(t, uint32(0), c.checksum)
	}
	require.Len(t, syncPayload, 36)
	require.Equal(t, []byte{0x07, 0x07, 0x12, 0x20}, syncPayload[:4])
	for _, b := range syncPayload[4:] {
		require.Equal(t, byte(0x55), b)
	}
}

func TestConnectAfterSlowBoot(t *testing.T) {
	// the loader only starts answering after the third reset
	resets := 0
	d := &fakeDevice{}
	d.handler = func(d *fakeDevice, c command) {
		if resets >= 3 {
			loader(nil)(d, c)
		}
	}
	config := testConfig()
	config.Sleep = func(hold time.Duration) {
		if hold == config.BootDelay {
			resets++
		}
	}
	s := NewSession(d, config)

	require.NoError(t, s.Connect())
	require.Equal(t, 3, resets)
	require.Equal(t, Ready, s.State())
}

func TestConnectLoaderAlreadyRunning(t *testing.T) {
	// the reset lines are not wired: only the probe-only phase can succeed
	probes := 0
	d := &fakeDevice{}
	d.handler = func(d *fakeDevice, c command) {
		probes++
		if probes > 4 {
			loader(nil)(d, c)
		}
	}
	s := NewSession(d, testConfig())

	require.NoError(t, s.Connect())
	require.Equal(t, 5, probes)
}

func TestConnectUnreachable(t *testing.T) {
	d := &fakeDevice{}
	config := testConfig()
	s := NewSession(d, config)

	start := time.Now()
	err := s.Connect()
	require.ErrorIs(t, err, ErrUnreachable)
	require.Equal(t, Unreachable, s.State())
	require.Less(t, time.Since(start), 5*time.Second)

	require.Len(t, d.commandsWith(OpSync), config.SyncResetAttempts+config.SyncProbeAttempts)
	require.Len(t, d.lines, 3*config.SyncResetAttempts)

	// stays unreachable until explicitly reconnected
	require.ErrorIs(t, s.Connect(), ErrUnreachable)
	require.Len(t, d.commandsWith(OpSync), config.SyncResetAttempts+config.SyncProbeAttempts)

	d.handler = loader(nil)
	require.NoError(t, s.Reconnect())
	require.Equal(t, Ready, s.State())
}

func TestConnectUnreachableIsBoundedByReadTimeout(t *testing.T) {
	d := &fakeDevice{slow: true}
	config := testConfig()
	config.ReadTimeout = 10 * time.Millisecond
	s := NewSession(d, config)

	start := time.Now()
	require.ErrorIs(t, s.Connect(), ErrUnreachable)
	elapsed := time.Since(start)

	// every reset round drains 7 frames, every probe-only round 7 plus 1
	reads := config.SyncResetAttempts*config.SyncDrainReads +
		config.SyncProbeAttempts*(config.SyncDrainReads+1)
	bound := time.Duration(reads) * config.ReadTimeout
	require.GreaterOrEqual(t, elapsed, bound)
	// scheduling slack only, no read may wait past its own timeout
	require.Less(t, elapsed, bound+500*time.Millisecond)
}

func TestUnreachableSurvivesResetAndClose(t *testing.T) {
	d := &fakeDevice{}
	s := NewSession(d, testConfig())
	require.ErrorIs(t, s.Connect(), ErrUnreachable)

	// the loader would answer now, but only Reconnect may try again
	d.handler = loader(nil)
	require.NoError(t, s.Reset(true))
	require.Equal(t, Unreachable, s.State())
	require.ErrorIs(t, s.Connect(), ErrUnreachable)

	require.NoError(t, s.Close())
	require.Equal(t, Unreachable, s.State())
	require.ErrorIs(t, s.Connect(), ErrUnreachable)
	require.False(t, d.IsOpen())

	require.NoError(t, s.Reconnect())
	require.Equal(t, Ready, s.State())
}

func TestConnectResetFailuresAreRetried(t *testing.T) {
	d := &fakeDevice{lineErr: errLineStuck}
	s := NewSession(d, testConfig())

	require.ErrorIs(t, s.Connect(), ErrUnreachable)
	// no probe without a successful reset, then the four probe-only rounds
	require.Len(t, d.commandsWith(OpSync), 4)
}

func TestOperationsNeedReady(t *testing.T) {
	d := &fakeDevice{handler: loader(nil)}
	s := NewSession(d, testConfig())

	_, err := s.ReadRegister(RegOTPMAC0)
	require.ErrorIs(t, err, ErrNotReady)
	require.ErrorIs(t, s.FlashBegin(0, 0), ErrNotReady)
	require.ErrorIs(t, s.MemEnd(0), ErrNotReady)
	require.Empty(t, d.commands)
}

func TestCloseReleasesPort(t *testing.T) {
	d := &fakeDevice{handler: loader(nil)}
	s := NewSession(d, testConfig())
	require.NoError(t, s.Connect())

	require.NoError(t, s.Close())
	require.False(t, d.IsOpen())
	require.Equal(t, Disconnected, s.State())
	require.NoError(t, s.Close())
	require.Equal(t, 1, d.closes)
}
