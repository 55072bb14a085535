// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/metrics"
)

// FrameSource yields decoded samples from a transport. Next returns
// ErrTimeout or ErrDiscarded when no sample was produced this call; any
// other error means the transport is broken.
type FrameSource interface {
	Next() (imu.Sample, error)
}

// discardLogEvery limits diagnostic output on a noisy line.
const discardLogEvery = 100

// errPartial reports that a terminator arrived but the bytes so far do not
// complete a frame yet. It is not counted as a discard.
var errPartial = fmt.Errorf("%w: partial frame", ErrDiscarded)

// Decoder splits a byte stream on Terminator and validates what it reads as
// frames. Payload bytes may equal the terminator, so a terminator only ends a
// frame when the marker precedes it. Bytes are accumulated across such
// terminators, and across timeouts, until a marker-valid terminator arrives;
// then a frame is cut from the end of the accumulated segment.
//
// Once a frame has been decoded its length is assumed for the next ones:
// shorter segments keep reading, longer ones lose their leading noise.
// Before that, a segment of exactly 50 or 54 bytes is a frame, 51 to 53
// bytes end in a 50-byte frame, and anything longer is dropped. Two noisy
// cuts in a row forget the learned length.
type Decoder struct {
	r        *bufio.Reader
	win      []byte // last TimestampedFrameLen bytes of the segment
	size     int    // bytes in the segment
	missed   bool   // segment crossed a terminator without marker
	lastLen  int    // length of the last frame, 0 until one is decoded
	noisy    int    // consecutive cuts that dropped leading bytes
	imuIndex int
	discards uint64
}

// NewDecoder reads delimited frames from r and emits the IMU block at imuIndex.
func NewDecoder(r io.Reader, imuIndex int) *Decoder {
	return &Decoder{
		r:        bufio.NewReaderSize(r, 4*TimestampedFrameLen),
		win:      make([]byte, 0, 2*TimestampedFrameLen),
		imuIndex: imuIndex,
	}
}

// Next reads up to the next terminator and returns a sample when that
// terminator completes a frame. errPartial, ErrDiscarded and ErrTimeout
// all mean no sample this call.
func (d *Decoder) Next() (imu.Sample, error) {
	for {
		chunk, err := d.r.ReadSlice(Terminator)
		d.push(chunk)

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				metrics.ReadTimeouts.Inc()
			}
			return nil, err
		}
		break
	}

	n := len(d.win)
	if n < 2 || d.win[n-2] != ValidMarker {
		d.missed = true
		return nil, errPartial
	}

	frameLen := d.cut()
	if frameLen == 0 {
		if d.size <= TimestampedFrameLen {
			return nil, errPartial
		}
		err := &frameError{reason: d.reason(), length: d.size}
		d.reset()
		d.discard(err)
		return nil, err
	}

	frame, err := ParseFrame(d.win[n-frameLen:])
	if noise := d.size - frameLen; noise > 0 {
		d.discard(&frameError{reason: d.reason(), length: noise})
		if d.noisy++; d.noisy >= 2 {
			frameLen, d.noisy = 0, 0
		}
	} else {
		d.noisy = 0
	}
	d.reset()
	if err != nil {
		d.discard(err)
		return nil, err
	}
	d.lastLen = frameLen
	metrics.FramesDecoded.Inc()
	return frame.Sample(d.imuIndex), nil
}

// cut picks the frame length to take from the end of the segment, 0 if none.
func (d *Decoder) cut() int {
	if d.lastLen != 0 {
		if d.size < d.lastLen {
			return 0
		}
		return d.lastLen
	}
	switch {
	case d.size == LegacyFrameLen || d.size == TimestampedFrameLen:
		return d.size
	case d.size > LegacyFrameLen && d.size < TimestampedFrameLen:
		return LegacyFrameLen
	}
	return 0
}

// push appends chunk to the segment, keeping only its tail in win.
func (d *Decoder) push(chunk []byte) {
	d.size += len(chunk)
	if len(chunk) >= TimestampedFrameLen {
		d.win = append(d.win[:0], chunk[len(chunk)-TimestampedFrameLen:]...)
		return
	}
	d.win = append(d.win, chunk...)
	if over := len(d.win) - TimestampedFrameLen; over > 0 {
		d.win = d.win[:copy(d.win, d.win[over:])]
	}
}

func (d *Decoder) reason() string {
	if d.missed {
		return reasonMarker
	}
	return reasonLength
}

func (d *Decoder) reset() {
	d.win = d.win[:0]
	d.size = 0
	d.missed = false
}

func (d *Decoder) discard(err error) {
	var fe *frameError
	if errors.As(err, &fe) {
		metrics.FramesDiscarded.WithLabelValues(fe.reason).Inc()
	}
	if d.discards%discardLogEvery == 0 {
		log.Printf("link: dropping bytes: %v (%d drops so far)", err, d.discards+1)
	}
	d.discards++
}
