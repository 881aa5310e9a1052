// Package source abstracts where (waveform, timestamps) pairs come from:
// the deterministic oracle synthesizer or a real singing-voice model behind
// an HTTP inference server. The caller chooses the variant explicitly; a
// failing model surfaces ErrUnavailable instead of silently falling back.
package source

import (
	"context"
	"errors"

	"github.com/pmarks/singalign/internal/synth"
	"github.com/pmarks/singalign/internal/timestamp"
)

// ErrUnavailable indicates the backing generator cannot produce output
// (unreachable server, failed task). The caller decides whether to fall back
// to the oracle or skip the song.
var ErrUnavailable = errors.New("source unavailable")

// Request describes one song to generate.
type Request struct {
	Lyrics          string
	Seed            int
	PerWordDuration float64 // seconds; 0 means the source's default
}

// Clip is one generated song: the decoded waveform, its sample rate, and the
// word timestamps the generator claims.
type Clip struct {
	Samples    []float64
	SampleRate int
	Words      timestamp.Sequence
	Generator  string // tag recorded in fixture metadata
}

// Source produces clips. Implementations are safe for concurrent use across
// independent requests.
type Source interface {
	Generate(ctx context.Context, req Request) (*Clip, error)
}

// Oracle generates clips with the deterministic synthesizer. Its timestamps
// are ground truth by construction.
type Oracle struct {
	Opts synth.Options
}

// NewOracle returns an oracle source with default synthesis options.
func NewOracle() *Oracle {
	return &Oracle{Opts: synth.DefaultOptions()}
}

// Generate synthesizes the request's lyrics. It never returns ErrUnavailable;
// the only failure is invalid input.
func (o *Oracle) Generate(_ context.Context, req Request) (*Clip, error) {
	opts := o.Opts
	if req.PerWordDuration > 0 {
		opts.PerWordDuration = req.PerWordDuration
	}
	res, err := synth.SynthesizeLyrics(req.Lyrics, req.Seed, opts)
	if err != nil {
		return nil, err
	}
	return &Clip{
		Samples:    res.Samples,
		SampleRate: res.SampleRate,
		Words:      res.Words,
		Generator:  "oracle",
	}, nil
}
