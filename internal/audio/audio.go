// Package audio holds the sample-domain primitives shared by the synthesizer
// and the validator: PCM conversion and windowed RMS energy estimation.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultSampleRate matches the rate singing-voice fixtures are generated at.
	DefaultSampleRate = 22050

	// FrameLength is the analysis window for energy estimation, in samples.
	FrameLength = 2048

	// DefaultHopLength is the stride between successive analysis frames.
	DefaultHopLength = 512
)

// ErrInvalidInput is returned for malformed arguments (empty waveform,
// non-positive hop length or sample rate).
var ErrInvalidInput = errors.New("invalid input")

// FloatsToPCM16 converts float64 samples in [-1, 1] to int16 PCM, clipping
// out-of-range values.
func FloatsToPCM16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// PCM16ToFloats converts int16 PCM to float64 samples in [-1, 1).
func PCM16ToFloats(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, s := range pcm {
		out[i] = float64(s) / 32768
	}
	return out
}

// PCM16ToBytes converts int16 samples to little-endian bytes.
func PCM16ToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToPCM16 converts little-endian bytes to int16 samples. A trailing odd
// byte is discarded.
func BytesToPCM16(buf []byte) []int16 {
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples
}

// Duration returns the waveform length in seconds.
func Duration(samples []float64, sampleRate int) float64 {
	return float64(len(samples)) / float64(sampleRate)
}

// EnergyPoint is one sample of an energy curve: the RMS level of the frame
// starting at Time.
type EnergyPoint struct {
	Time float64 // seconds
	RMS  float64
}

// EnergyCurve is a time-indexed loudness curve at a fixed hop interval.
type EnergyCurve []EnergyPoint

// EstimateRMS computes a windowed RMS energy curve over the waveform.
// Frame i covers samples [i*hop, i*hop+FrameLength), zero-padded past the
// tail, and is stamped with time i*hop/sampleRate. The curve has exactly
// ceil(len(samples)/hop) entries.
func EstimateRMS(samples []float64, sampleRate, hopLength int) (EnergyCurve, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty waveform", ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, sampleRate)
	}
	if hopLength <= 0 {
		return nil, fmt.Errorf("%w: hop length must be positive, got %d", ErrInvalidInput, hopLength)
	}

	frames := (len(samples) + hopLength - 1) / hopLength
	curve := make(EnergyCurve, frames)

	for i := 0; i < frames; i++ {
		start := i * hopLength
		end := start + FrameLength
		if end > len(samples) {
			end = len(samples)
		}

		// Zero-padding contributes nothing to the sum but still counts in
		// the mean, so divide by the full frame length.
		var sum float64
		for _, s := range samples[start:end] {
			sum += s * s
		}
		curve[i] = EnergyPoint{
			Time: float64(start) / float64(sampleRate),
			RMS:  math.Sqrt(sum / FrameLength),
		}
	}
	return curve, nil
}

// MeanLevel returns the mean RMS of curve points with start <= Time <= end,
// or 0 when no point falls in that range.
func (c EnergyCurve) MeanLevel(start, end float64) float64 {
	var sum float64
	var n int
	for _, p := range c {
		if p.Time >= start && p.Time <= end {
			sum += p.RMS
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
