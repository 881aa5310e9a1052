// Package timestamp defines word-level timing records and the JSON document
// format they are exchanged in.
package timestamp

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Word is one word of lyrics with its timing in seconds.
// Immutable once produced.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// Sequence is an ordered word-timestamp sequence. Index order is temporal
// order; the validator treats non-monotonic input as a failure rather than
// re-sorting it.
type Sequence []Word

// Round3 rounds a time value to the 3-decimal display precision timestamps
// are serialized at.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Metadata describes how a document's audio was produced. The validator
// ignores it; it exists for benchmark bookkeeping.
type Metadata struct {
	Generator   string `json:"generator"`
	SampleRate  int    `json:"sample_rate"`
	WordCount   int    `json:"word_count"`
	TakeID      string `json:"take_id,omitempty"`
	AudioBlake3 string `json:"audio_blake3,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// Document is the timestamp file format: the word sequence plus optional
// song-level metadata.
type Document struct {
	SongID   string    `json:"song_id,omitempty"`
	Lyrics   string    `json:"lyrics,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Words    Sequence  `json:"words"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Load reads a timestamp document from a JSON file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timestamps %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse timestamps %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes the document as indented JSON.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timestamps: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write timestamps %s: %w", path, err)
	}
	return nil
}
