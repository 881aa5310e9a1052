// Package validate checks a word-timestamp sequence against its waveform:
// five structural checks plus an energy-presence check. Validation failure is
// a normal result, never an error.
package validate

import (
	"fmt"

	"github.com/pmarks/singalign/internal/audio"
	"github.com/pmarks/singalign/internal/timestamp"
)

// CheckName identifies one validation check.
type CheckName string

// The fixed check set, in report order.
const (
	CheckNoNegativeDurations CheckName = "no_negative_durations"
	CheckNoOverlaps          CheckName = "no_overlaps"
	CheckRealisticDurations  CheckName = "realistic_durations"
	CheckWithinBounds        CheckName = "within_bounds"
	CheckMonotonic           CheckName = "monotonic"
	CheckHasAudioEnergy      CheckName = "has_audio_energy"
)

// CheckOrder is the presentation order of the checks. All checks are
// independent; the order carries no evaluation semantics.
var CheckOrder = []CheckName{
	CheckNoNegativeDurations,
	CheckNoOverlaps,
	CheckRealisticDurations,
	CheckWithinBounds,
	CheckMonotonic,
	CheckHasAudioEnergy,
}

// Config holds the validation thresholds.
type Config struct {
	MinWordDuration  float64 // seconds, shortest plausible word
	MaxWordDuration  float64 // seconds, longest plausible word
	SilenceRMS       float64 // mean RMS at or below this counts as silent
	SilenceTolerance float64 // max fraction of silent words before failure
	HopLength        int     // energy curve hop, samples
	BoundsTolerance  float64 // seconds of slack past the audio extent,
	// absorbing 3-decimal display rounding of timestamps
}

// DefaultConfig returns the recommended thresholds.
func DefaultConfig() Config {
	return Config{
		MinWordDuration:  0.05,
		MaxWordDuration:  10.0,
		SilenceRMS:       0.01,
		SilenceTolerance: 0.10,
		HopLength:        audio.DefaultHopLength,
		BoundsTolerance:  0.001,
	}
}

// Violation records one offending word for a failed check.
type Violation struct {
	Index  int    `json:"index"`
	Word   string `json:"word"`
	Detail string `json:"detail"`
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name       CheckName   `json:"name"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Report is the full validation outcome: every check's result in CheckOrder,
// with enough diagnostics to print a diagnosis without re-running anything.
type Report struct {
	Checks []CheckResult `json:"checks"`
	Passed bool          `json:"passed"`
}

// Check returns the result for a named check, or a zero CheckResult if the
// name is unknown.
func (r Report) Check(name CheckName) CheckResult {
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	return CheckResult{}
}

// Validator runs the check battery with a fixed configuration. Stateless and
// safe for concurrent use.
type Validator struct {
	cfg Config
}

// New creates a Validator. Zero-valued Config fields take defaults.
func New(cfg Config) *Validator {
	d := DefaultConfig()
	if cfg.MinWordDuration == 0 {
		cfg.MinWordDuration = d.MinWordDuration
	}
	if cfg.MaxWordDuration == 0 {
		cfg.MaxWordDuration = d.MaxWordDuration
	}
	if cfg.SilenceRMS == 0 {
		cfg.SilenceRMS = d.SilenceRMS
	}
	if cfg.SilenceTolerance == 0 {
		cfg.SilenceTolerance = d.SilenceTolerance
	}
	if cfg.HopLength == 0 {
		cfg.HopLength = d.HopLength
	}
	if cfg.BoundsTolerance == 0 {
		cfg.BoundsTolerance = d.BoundsTolerance
	}
	return &Validator{cfg: cfg}
}

// Validate runs every check unconditionally and returns the aggregated
// report. Out-of-range or inverted timestamps are recorded as violations,
// never panics; an empty sequence passes everything vacuously.
func (v *Validator) Validate(samples []float64, sampleRate int, words timestamp.Sequence) Report {
	checks := []CheckResult{
		v.noNegativeDurations(words),
		v.noOverlaps(words),
		v.realisticDurations(words),
		v.withinBounds(samples, sampleRate, words),
		v.monotonic(words),
		v.hasAudioEnergy(samples, sampleRate, words),
	}

	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
		}
	}
	return Report{Checks: checks, Passed: passed}
}

func (v *Validator) noNegativeDurations(words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckNoNegativeDurations, Passed: true}
	for i, w := range words {
		if w.End <= w.Start {
			res.Passed = false
			res.Violations = append(res.Violations, Violation{
				Index:  i,
				Word:   w.Text,
				Detail: fmt.Sprintf("end %.3f <= start %.3f", w.End, w.Start),
			})
		}
	}
	return res
}

func (v *Validator) noOverlaps(words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckNoOverlaps, Passed: true}
	for i := 0; i+1 < len(words); i++ {
		if words[i].End > words[i+1].Start {
			res.Passed = false
			res.Violations = append(res.Violations, Violation{
				Index:  i,
				Word:   words[i].Text,
				Detail: fmt.Sprintf("end %.3f overlaps next start %.3f (%q)", words[i].End, words[i+1].Start, words[i+1].Text),
			})
		}
	}
	return res
}

func (v *Validator) realisticDurations(words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckRealisticDurations, Passed: true}
	for i, w := range words {
		d := w.Duration()
		if d < v.cfg.MinWordDuration || d > v.cfg.MaxWordDuration {
			res.Passed = false
			res.Violations = append(res.Violations, Violation{
				Index:  i,
				Word:   w.Text,
				Detail: fmt.Sprintf("duration %.3fs outside [%.3g, %.3g]", d, v.cfg.MinWordDuration, v.cfg.MaxWordDuration),
			})
		}
	}
	return res
}

func (v *Validator) withinBounds(samples []float64, sampleRate int, words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckWithinBounds, Passed: true}
	dur := audio.Duration(samples, sampleRate)
	limit := dur + v.cfg.BoundsTolerance
	for i, w := range words {
		if w.Start < 0 || w.End > limit {
			res.Passed = false
			res.Violations = append(res.Violations, Violation{
				Index:  i,
				Word:   w.Text,
				Detail: fmt.Sprintf("[%.3f, %.3f] outside audio extent [0, %.3f]", w.Start, w.End, dur),
			})
		}
	}
	return res
}

func (v *Validator) monotonic(words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckMonotonic, Passed: true}
	for i := 0; i+1 < len(words); i++ {
		if words[i].Start >= words[i+1].Start {
			res.Passed = false
			res.Violations = append(res.Violations, Violation{
				Index:  i + 1,
				Word:   words[i+1].Text,
				Detail: fmt.Sprintf("start %.3f does not increase past previous start %.3f", words[i+1].Start, words[i].Start),
			})
		}
	}
	return res
}

// hasAudioEnergy is statistical: a word is silent when the mean of the RMS
// curve over its range is at or below SilenceRMS, and the check fails only
// when the silent fraction exceeds SilenceTolerance. Words whose range falls
// outside the curve read as silent rather than erroring.
func (v *Validator) hasAudioEnergy(samples []float64, sampleRate int, words timestamp.Sequence) CheckResult {
	res := CheckResult{Name: CheckHasAudioEnergy, Passed: true}
	if len(words) == 0 {
		return res
	}

	curve, err := audio.EstimateRMS(samples, sampleRate, v.cfg.HopLength)
	if err != nil {
		// Unmeasurable audio: every word counts as silent.
		curve = nil
	}

	var silent []Violation
	for i, w := range words {
		level := curve.MeanLevel(w.Start, w.End)
		if level <= v.cfg.SilenceRMS {
			silent = append(silent, Violation{
				Index:  i,
				Word:   w.Text,
				Detail: fmt.Sprintf("mean RMS %.4f at or below silence threshold %.4f", level, v.cfg.SilenceRMS),
			})
		}
	}

	fraction := float64(len(silent)) / float64(len(words))
	if fraction > v.cfg.SilenceTolerance {
		res.Passed = false
		res.Violations = silent
	}
	return res
}
