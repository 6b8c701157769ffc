package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// SampleRate is the rate of the PCM produced by the speech service.
	SampleRate = 24000

	// Channels is the channel count of the PCM produced by the speech service.
	Channels = 1

	// bytesPerSample for signed 16-bit little-endian input.
	bytesPerSample = 2

	// pcmScale maps int16 samples onto [-1.0, 1.0).
	pcmScale = 32768.0
)

// ErrDecode is returned when raw audio cannot be turned into a Buffer.
var ErrDecode = errors.New("audio decode failed")

// Buffer is a decoded mono sample buffer. Once handed to the cache it is
// treated as read-only.
type Buffer struct {
	SampleRate int
	Samples    []float32
}

// Len returns the number of samples in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Decode converts raw signed 16-bit little-endian mono PCM into a Buffer at
// SampleRate. Every sample is divided by 32768; no resampling is done.
// Input with an odd number of bytes is rejected.
func Decode(raw []byte) (*Buffer, error) {
	if len(raw)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd pcm length %d", ErrDecode, len(raw))
	}

	samples := make([]float32, len(raw)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*bytesPerSample:])) //nolint:gosec
		samples[i] = float32(v) / pcmScale
	}

	return &Buffer{
		SampleRate: SampleRate,
		Samples:    samples,
	}, nil
}

// float32LE serializes the samples in the layout oto expects for
// oto.FormatFloat32LE.
func (b *Buffer) float32LE() []byte {
	out := make([]byte, len(b.Samples)*4)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
