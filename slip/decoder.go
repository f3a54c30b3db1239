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

package slip

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Reader is a byte source with a per-call timeout. Read returns whatever is
// available, waiting at most timeout; it returns 0, nil if the timeout expired.
type Reader interface {
	Read(p []byte, timeout time.Duration) (int, error)
}

// Decoder extracts SLIP frames from a Reader. Bytes received after the end of
// a frame are kept for the next call; bytes belonging to a malformed frame
// are dropped.
type Decoder struct {
	r       Reader
	buf     [512]byte
	pending []byte
	now     func() time.Time
}

// NewDecoder creates a Decoder reading from r
func NewDecoder(r Reader) *Decoder {
	return &Decoder{r: r, now: time.Now}
}

// Discard drops any byte already read from the Reader and not yet consumed.
func (d *Decoder) Discard() {
	d.pending = nil
}

// ReadFrame reads a single frame and returns its decoded content, without
// delimiters. The whole attempt is bounded by timeout: if the frame is not
// complete when it expires ErrTimeout is returned and no partial data.
// A frame that does not begin with End fails with ErrNoFrameStart and an
// illegal escape fails with ErrInvalidEscape. Errors from the Reader are
// returned unchanged.
func (d *Decoder) ReadFrame(timeout time.Duration) ([]byte, error) {
	deadline := d.now().Add(timeout)
	var frame []byte
	started := false
	escaped := false
	for {
		if len(d.pending) == 0 {
			remaining := deadline.Sub(d.now())
			if remaining <= 0 {
				return nil, ErrTimeout
			}
			n, err := d.r.Read(d.buf[:], remaining)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, ErrTimeout
			}
			d.pending = d.buf[:n]
		}

		b := d.pending[0]
		d.pending = d.pending[1:]

		switch {
		case !started:
			if b != End {
				logrus.Debugf("discarding data not starting with a SLIP delimiter: 0x%02x", b)
				d.pending = nil
				return nil, ErrNoFrameStart
			}
			started = true
			frame = []byte{}
		case escaped:
			escaped = false
			switch b {
			case EscEnd:
				frame = append(frame, End)
			case EscEsc:
				frame = append(frame, Esc)
			default:
				logrus.Debugf("invalid SLIP escape 0xdb 0x%02x", b)
				d.pending = nil
				return nil, ErrInvalidEscape
			}
		case b == Esc:
			escaped = true
		case b == End:
			return frame, nil
		default:
			frame = append(frame, b)
		}
	}
}
