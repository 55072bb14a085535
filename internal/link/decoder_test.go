// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

func TestDecoder_ValidFrames(t *testing.T) {
	port := newFakePort(data(concat(EncodeFrame(testFrame(false)), EncodeFrame(testFrame(true)))))
	d := NewDecoder(port, 0)

	s, err := d.Next()
	require.NoError(t, err)
	raw := s.(imu.RawSample)
	assert.Equal(t, testFrame(false).IMU[0].Gyro, raw.Gyro)
	assert.False(t, raw.HasTimestamp)

	s, err = d.Next()
	require.NoError(t, err)
	raw = s.(imu.RawSample)
	assert.True(t, raw.HasTimestamp)
	assert.InDelta(t, 1.5, raw.Timestamp, 1e-9)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDecoder_SelectsIMUBlock(t *testing.T) {
	d := NewDecoder(newFakePort(data(EncodeFrame(testFrame(false)))), 1)
	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, testFrame(false).IMU[1].Gyro, s.(imu.RawSample).Gyro)
}

func TestDecoder_ResyncsAfterGarbage(t *testing.T) {
	garbage := []byte{0x01, 0x02, Terminator}
	port := newFakePort(data(concat(EncodeFrame(testFrame(false)), garbage, EncodeFrame(testFrame(false)))))
	d := NewDecoder(port, 0)

	_, err := d.Next()
	require.NoError(t, err)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrDiscarded)

	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, testFrame(false).IMU[0].Accel, s.(imu.RawSample).Accel)
	assert.Equal(t, uint64(1), d.discards, "the garbage is counted once")
}

func TestDecoder_BadMarkerDropsOnlyThatFrame(t *testing.T) {
	bad := EncodeFrame(testFrame(true))
	bad[52] = 0x7E
	port := newFakePort(data(concat(EncodeFrame(testFrame(true)), bad, EncodeFrame(testFrame(true)))))
	d := NewDecoder(port, 0)

	_, err := d.Next()
	require.NoError(t, err)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrDiscarded)

	s, err := d.Next()
	require.NoError(t, err)
	assert.True(t, s.(imu.RawSample).HasTimestamp)
	assert.Equal(t, uint64(1), d.discards)
}

func TestDecoder_TerminatorInsidePayload(t *testing.T) {
	tests := []struct {
		name string
		bits uint32
	}{
		{"terminator", 0x3F8000FF},            // bytes FF 00 80 3F
		{"marker and terminator", 0x3FFFFE00}, // bytes 00 FE FF 3F
	}
	for _, tt := range tests {
		for _, timestamped := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/timestamped=%v", tt.name, timestamped), func(t *testing.T) {
				f := testFrame(timestamped)
				f.IMU[0].Gyro.X = float64(math.Float32frombits(tt.bits))
				b := EncodeFrame(f)
				require.GreaterOrEqual(t, bytes.IndexByte(b[:len(b)-1], Terminator), 0)

				d := NewDecoder(newFakePort(data(concat(b, b))), 0)
				var got []imu.RawSample
				for i := 0; i < 6 && len(got) < 2; i++ {
					s, err := d.Next()
					if errors.Is(err, ErrDiscarded) {
						continue
					}
					require.NoError(t, err)
					got = append(got, s.(imu.RawSample))
				}
				require.Len(t, got, 2)
				for _, s := range got {
					assert.Equal(t, f.IMU[0].Gyro, s.Gyro)
					assert.Equal(t, timestamped, s.HasTimestamp)
				}
				assert.Zero(t, d.discards)
			})
		}
	}
}

func TestDecoder_OverlongNoise(t *testing.T) {
	noise := make([]byte, 500)
	for i := range noise {
		noise[i] = byte(i % 200)
	}
	frame := EncodeFrame(testFrame(false))

	t.Run("after a good frame", func(t *testing.T) {
		d := NewDecoder(newFakePort(data(concat(frame, noise, frame))), 0)
		_, err := d.Next()
		require.NoError(t, err)

		s, err := d.Next()
		require.NoError(t, err, "the frame length is known, so the tail is cut out of the noise")
		assert.Equal(t, testFrame(false).IMU[0].Gyro, s.(imu.RawSample).Gyro)
		assert.Equal(t, uint64(1), d.discards)
	})

	t.Run("before any frame", func(t *testing.T) {
		d := NewDecoder(newFakePort(data(concat(noise, frame, frame))), 0)
		_, err := d.Next()
		var fe *frameError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, reasonLength, fe.reason)
		assert.Equal(t, 550, fe.length)

		_, err = d.Next()
		assert.NoError(t, err)
	})
}

func TestDecoder_FrameSplitAcrossTimeout(t *testing.T) {
	frame := EncodeFrame(testFrame(true))
	port := newFakePort(
		data(frame[:20]),
		fail(ErrTimeout),
		data(frame[20:]),
	)
	d := NewDecoder(port, 0)

	_, err := d.Next()
	assert.ErrorIs(t, err, ErrTimeout)

	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, testFrame(true).IMU[0].Gyro, s.(imu.RawSample).Gyro)
}

func TestDecoder_FatalErrorPassesThrough(t *testing.T) {
	broken := errors.New("device unplugged")
	d := NewDecoder(newFakePort(fail(broken)), 0)
	_, err := d.Next()
	assert.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, ErrDiscarded)
}

// randomFrame returns a frame whose payload may hold the terminator but not
// the marker right before it; that case is covered on its own above.
func randomFrame(rng *rand.Rand, timestamped bool) (Frame, []byte) {
	for {
		f, b := anyFrame(rng, timestamped)
		if !bytes.Contains(b[:len(b)-2], []byte{ValidMarker, Terminator}) {
			return f, b
		}
	}
}

func anyFrame(rng *rand.Rand, timestamped bool) (Frame, []byte) {
	var f Frame
	for i := range f.IMU {
		f.IMU[i] = imu.Reading{
			Gyro:  imu.Vector3{X: float64(float32(rng.NormFloat64() * 50)), Y: float64(float32(rng.NormFloat64() * 50)), Z: float64(float32(rng.NormFloat64() * 50))},
			Accel: imu.Vector3{X: float64(float32(rng.NormFloat64())), Y: float64(float32(rng.NormFloat64())), Z: float64(float32(rng.NormFloat64()))},
		}
	}
	if timestamped {
		f.Timestamp = float64(uint32(rng.Int63n(1<<24))) / 1e6
		f.HasTimestamp = true
	}
	return f, EncodeFrame(f)
}

// randomGarbage returns a terminated chunk without the marker. Its length
// never lets it combine with the following frame into another valid length.
func randomGarbage(rng *rand.Rand, frameLen int) []byte {
	n := 1 + rng.Intn(120)
	if n+frameLen == TimestampedFrameLen {
		n++
	}
	b := make([]byte, n)
	for i := range b[:n-1] {
		b[i] = byte(rng.Intn(int(Terminator)))
	}
	if n >= 2 && b[n-2] == ValidMarker {
		b[n-2] = 0
	}
	b[n-1] = Terminator
	return b
}

func TestDecoder_EmitsExactlyTheValidFrames(t *testing.T) {
	for _, timestamped := range []bool{false, true} {
		t.Run(fmt.Sprintf("timestamped=%v", timestamped), func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			frameLen := LegacyFrameLen
			if timestamped {
				frameLen = TimestampedFrameLen
			}

			var stream []byte
			var want []Frame
			splits := 0
			noiseBefore := false
			for i := 0; i < 2000; i++ {
				// at most one noise run between frames, never two frames in a
				// row, never before the first
				noiseBefore = i > 0 && !noiseBefore && rng.Intn(4) == 0
				if noiseBefore {
					stream = append(stream, randomGarbage(rng, frameLen)...)
				}
				f, b := randomFrame(rng, timestamped)
				if bytes.IndexByte(b[:len(b)-1], Terminator) >= 0 {
					splits++
				}
				want = append(want, f)
				stream = append(stream, b...)
			}
			require.Positive(t, splits, "some frames carry the terminator in their payload")

			// deliver in uneven pieces with timeouts in between
			var steps []readStep
			for len(stream) > 0 {
				n := min(len(stream), 1+rng.Intn(80))
				steps = append(steps, data(stream[:n]), fail(ErrTimeout))
				stream = stream[n:]
			}
			port := newFakePort(steps...)
			port.exhausted = errors.New("end of script")
			d := NewDecoder(port, 0)

			var got []imu.RawSample
			for {
				s, err := d.Next()
				if errors.Is(err, ErrTimeout) || errors.Is(err, ErrDiscarded) {
					continue
				}
				if err != nil {
					break
				}
				got = append(got, s.(imu.RawSample))
			}

			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].IMU[0].Gyro, got[i].Gyro, "frame %d", i)
				assert.Equal(t, want[i].IMU[0].Accel, got[i].Accel, "frame %d", i)
				if timestamped {
					assert.InDelta(t, want[i].Timestamp, got[i].Timestamp, 1e-6, "frame %d", i)
				}
			}
		})
	}
}
