// Package synth generates deterministic singing-like waveforms with
// ground-truth word timestamps. It is the oracle the validator is exercised
// against, and the fallback when no real singing-voice model is available.
package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/pmarks/singalign/internal/audio"
	"github.com/pmarks/singalign/internal/timestamp"
)

// Harmonic amplitude weights for the fundamental, 2x, and 3x partials.
// Chosen so the mix peaks around 0.53 and never clips.
const (
	weightFundamental = 0.30
	weightSecond      = 0.15
	weightThird       = 0.08
)

// Options control synthesis. Zero-valued fields take defaults.
type Options struct {
	SampleRate      int     // Hz, default 22050
	PerWordDuration float64 // seconds per word slot, default 0.8
	BaseHz          float64 // fundamental at seed 0, default 220
	StepHz          float64 // fundamental increment per seed step, default 5
	VibratoRateHz   float64 // amplitude modulation rate, default 5.5
	VibratoDepth    float64 // amplitude modulation depth, default 0.015
	FadeDuration    float64 // edge fade length in seconds, default 0.05
}

// DefaultOptions returns the synthesis parameters used for benchmark fixtures.
func DefaultOptions() Options {
	return Options{
		SampleRate:      audio.DefaultSampleRate,
		PerWordDuration: 0.8,
		BaseHz:          220,
		StepHz:          5,
		VibratoRateHz:   5.5,
		VibratoDepth:    0.015,
		FadeDuration:    0.05,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleRate == 0 {
		o.SampleRate = d.SampleRate
	}
	if o.PerWordDuration == 0 {
		o.PerWordDuration = d.PerWordDuration
	}
	if o.BaseHz == 0 {
		o.BaseHz = d.BaseHz
	}
	if o.StepHz == 0 {
		o.StepHz = d.StepHz
	}
	if o.VibratoRateHz == 0 {
		o.VibratoRateHz = d.VibratoRateHz
	}
	if o.VibratoDepth == 0 {
		o.VibratoDepth = d.VibratoDepth
	}
	if o.FadeDuration == 0 {
		o.FadeDuration = d.FadeDuration
	}
	return o
}

// Result is one synthesized song: the waveform plus the ground-truth word
// slots it was built from.
type Result struct {
	Samples    []float64
	SampleRate int
	Words      timestamp.Sequence
}

// Synthesize renders one word list to a waveform, deterministically for a
// given (words, seed) pair. Each word occupies a contiguous slot of
// PerWordDuration seconds; the signal is a 3-partial harmonic stack with slow
// amplitude vibrato, faded linearly over FadeDuration at the extremes only.
// Interior word boundaries carry no artificial silence so energy checks hold
// across them.
func Synthesize(words []string, seed int, opts Options) (*Result, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty word list", audio.ErrInvalidInput)
	}
	opts = opts.withDefaults()
	if opts.SampleRate < 0 || opts.PerWordDuration < 0 {
		return nil, fmt.Errorf("%w: negative sample rate or word duration", audio.ErrInvalidInput)
	}

	sr := float64(opts.SampleRate)
	duration := float64(len(words)) * opts.PerWordDuration
	n := int(math.Ceil(duration * sr))
	fundamental := opts.BaseHz + float64(seed)*opts.StepHz

	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / sr
		s := weightFundamental*math.Sin(2*math.Pi*fundamental*t) +
			weightSecond*math.Sin(2*math.Pi*fundamental*2*t) +
			weightThird*math.Sin(2*math.Pi*fundamental*3*t)
		s *= 1 + opts.VibratoDepth*math.Sin(2*math.Pi*opts.VibratoRateHz*t)
		samples[i] = s
	}

	applyEdgeFades(samples, int(opts.FadeDuration*sr))

	seq := make(timestamp.Sequence, len(words))
	for i, w := range words {
		seq[i] = timestamp.Word{
			Text:  w,
			Start: timestamp.Round3(float64(i) * opts.PerWordDuration),
			End:   timestamp.Round3(float64(i+1) * opts.PerWordDuration),
		}
	}

	return &Result{Samples: samples, SampleRate: opts.SampleRate, Words: seq}, nil
}

// SynthesizeLyrics splits a lyrics line on whitespace and synthesizes it.
func SynthesizeLyrics(lyrics string, seed int, opts Options) (*Result, error) {
	return Synthesize(strings.Fields(lyrics), seed, opts)
}

// applyEdgeFades ramps the first and last fade samples linearly to avoid
// edge discontinuities.
func applyEdgeFades(samples []float64, fade int) {
	if fade <= 0 {
		return
	}
	if fade > len(samples)/2 {
		fade = len(samples) / 2
	}
	for i := 0; i < fade; i++ {
		gain := float64(i) / float64(fade)
		samples[i] *= gain
		samples[len(samples)-1-i] *= gain
	}
}
