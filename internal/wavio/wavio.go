// Package wavio reads and writes waveforms as 16-bit PCM WAV files, the
// uncompressed container fixtures are exchanged in. Anything else is decoded
// through FFmpeg.
package wavio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pmarks/singalign/internal/audio"
)

// WriteFile writes mono float64 samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteFile(path string, samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: empty waveform", audio.ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", audio.ErrInvalidInput, sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	pcm := audio.FloatsToPCM16(samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a WAV file to mono float64 samples and its sample rate.
// Multi-channel files are downmixed by averaging.
func ReadFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("decode %s: empty or malformed wav", path)
	}

	channels := buf.Format.NumChannels
	scale := float64(int(1) << (dec.BitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / scale
	}
	return samples, buf.Format.SampleRate, nil
}

// DecodeFFmpeg runs FFmpeg to decode any audio container to mono float64
// samples at the requested rate, for validating non-WAV inputs.
func DecodeFFmpeg(ctx context.Context, path string, sampleRate int) ([]float64, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return audio.PCM16ToFloats(audio.BytesToPCM16(out)), nil
}
