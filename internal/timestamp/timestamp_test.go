package timestamp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRound3(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.0005, 0.001},
		{0.8, 0.8},
		{1.23456, 1.235},
		{2.3999999, 2.4},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWordDuration(t *testing.T) {
	w := Word{Text: "hello", Start: 0.8, End: 1.6}
	if d := w.Duration(); d != 0.8 {
		t.Errorf("Duration = %v, want 0.8", d)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := &Document{
		SongID:   "song_001",
		Lyrics:   "hello world",
		Duration: 1.6,
		Words: Sequence{
			{Text: "hello", Start: 0, End: 0.8},
			{Text: "world", Start: 0.8, End: 1.6},
		},
		Metadata: &Metadata{
			Generator:  "oracle",
			SampleRate: 22050,
			WordCount:  2,
		},
	}

	path := filepath.Join(t.TempDir(), "song_001.json")
	if err := doc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SongID != doc.SongID {
		t.Errorf("SongID = %q, want %q", loaded.SongID, doc.SongID)
	}
	if len(loaded.Words) != 2 {
		t.Fatalf("word count = %d, want 2", len(loaded.Words))
	}
	if loaded.Words[1] != doc.Words[1] {
		t.Errorf("word[1] = %+v, want %+v", loaded.Words[1], doc.Words[1])
	}
	if loaded.Metadata == nil || loaded.Metadata.SampleRate != 22050 {
		t.Errorf("metadata not preserved: %+v", loaded.Metadata)
	}
}

func TestLoadBareWordsFormat(t *testing.T) {
	// Hand-authored fixtures may carry only the words array.
	path := filepath.Join(t.TempDir(), "bare.json")
	raw := `{"words":[{"text":"a","start":0,"end":0.5}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Words) != 1 || doc.Words[0].Text != "a" {
		t.Errorf("words = %+v, want single word \"a\"", doc.Words)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Load on missing file should error")
	}
}
