// Package batch drives fixture generation and validation across many songs:
// a bounded worker pool generates each song independently, writes its WAV and
// timestamp document, validates the pair, and records the outcome.
package batch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/pmarks/singalign/internal/audio"
	"github.com/pmarks/singalign/internal/results"
	"github.com/pmarks/singalign/internal/source"
	"github.com/pmarks/singalign/internal/synth"
	"github.com/pmarks/singalign/internal/timestamp"
	"github.com/pmarks/singalign/internal/validate"
	"github.com/pmarks/singalign/internal/wavio"
)

// Config holds batch parameters.
type Config struct {
	Count            int     // songs to generate, 1-based indices
	OutDir           string  // where song_NNN.wav / song_NNN.json land
	Workers          int     // parallel songs, default 4
	PerWordDuration  float64 // passed through to the source, 0 = source default
	FallbackToOracle bool    // on source.ErrUnavailable, synthesize instead of skipping
}

// SongResult is the outcome for one song.
type SongResult struct {
	Index     int
	SongID    string
	TakeID    string
	Generator string
	AudioPath string
	Skipped   bool
	Err       error
	Report    validate.Report
}

// Summary aggregates a batch run. Songs are independent: validation failures
// and per-song errors never abort the batch.
type Summary struct {
	Generated int
	Passed    int
	Failed    int
	Skipped   int
	Errors    int
}

// Runner generates and validates a batch of songs.
type Runner struct {
	src       source.Source
	validator *validate.Validator
	store     *results.Store // optional
	cfg       Config
}

// NewRunner creates a batch runner. store may be nil to skip persistence.
func NewRunner(src source.Source, v *validate.Validator, store *results.Store, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Runner{src: src, validator: v, store: store, cfg: cfg}
}

// Run processes all songs and returns the summary plus per-song results in
// index order. The only terminal errors are setup failures (output dir,
// results db); everything per-song is reported, not raised.
func (r *Runner) Run(ctx context.Context) (Summary, []SongResult, error) {
	if r.cfg.Count <= 0 {
		return Summary{}, nil, fmt.Errorf("%w: batch count must be positive, got %d", audio.ErrInvalidInput, r.cfg.Count)
	}
	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return Summary{}, nil, fmt.Errorf("create output dir: %w", err)
	}

	jobs := make(chan int)
	resultCh := make(chan SongResult)

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				resultCh <- r.runSong(ctx, idx)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 1; i <= r.cfg.Count; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	songs := make([]SongResult, 0, r.cfg.Count)
	for res := range resultCh {
		songs = append(songs, res)
	}
	sortByIndex(songs)

	var sum Summary
	for _, res := range songs {
		switch {
		case res.Err != nil:
			sum.Errors++
			slog.Error("song failed", "index", res.Index, "error", res.Err)
		case res.Skipped:
			sum.Skipped++
			slog.Warn("song skipped, source unavailable", "index", res.Index)
		default:
			sum.Generated++
			if res.Report.Passed {
				sum.Passed++
			} else {
				sum.Failed++
			}
			if r.store != nil {
				if err := r.store.Save(results.Record{
					SongID:    res.SongID,
					TakeID:    res.TakeID,
					Generator: res.Generator,
					AudioPath: res.AudioPath,
					Report:    res.Report,
				}); err != nil {
					return sum, songs, err
				}
			}
		}
	}
	return sum, songs, nil
}

// runSong generates, writes, and validates a single song.
func (r *Runner) runSong(ctx context.Context, index int) SongResult {
	res := SongResult{Index: index, SongID: fmt.Sprintf("song_%03d", index)}
	lyrics := synth.LyricsForIndex(index)

	req := source.Request{Lyrics: lyrics, Seed: index, PerWordDuration: r.cfg.PerWordDuration}
	clip, err := r.src.Generate(ctx, req)
	if errors.Is(err, source.ErrUnavailable) {
		if !r.cfg.FallbackToOracle {
			res.Skipped = true
			return res
		}
		slog.Warn("falling back to oracle", "index", index, "error", err)
		clip, err = source.NewOracle().Generate(ctx, req)
		if clip != nil {
			clip.Generator = "oracle_fallback"
		}
	}
	if err != nil {
		res.Err = err
		return res
	}
	res.Generator = clip.Generator
	res.TakeID = uuid.NewString()

	res.AudioPath = filepath.Join(r.cfg.OutDir, res.SongID+".wav")
	docPath := filepath.Join(r.cfg.OutDir, res.SongID+".json")
	if _, res.Err = WriteFixture(res.AudioPath, docPath, res.SongID, lyrics, res.TakeID, clip); res.Err != nil {
		return res
	}

	res.Report = r.validator.Validate(clip.Samples, clip.SampleRate, clip.Words)
	slog.Info("song validated",
		"index", index, "generator", clip.Generator,
		"words", len(clip.Words), "passed", res.Report.Passed)
	return res
}

// WriteFixture writes a clip as a WAV plus its timestamp document, stamping
// the document with the audio file's blake3 checksum.
func WriteFixture(audioPath, docPath, songID, lyrics, takeID string, clip *source.Clip) (*timestamp.Document, error) {
	if err := wavio.WriteFile(audioPath, clip.Samples, clip.SampleRate); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", audioPath, err)
	}
	sum := blake3.Sum256(data)

	doc := &timestamp.Document{
		SongID:   songID,
		Lyrics:   lyrics,
		Duration: timestamp.Round3(audio.Duration(clip.Samples, clip.SampleRate)),
		Words:    clip.Words,
		Metadata: &timestamp.Metadata{
			Generator:   clip.Generator,
			SampleRate:  clip.SampleRate,
			WordCount:   len(clip.Words),
			TakeID:      takeID,
			AudioBlake3: hex.EncodeToString(sum[:]),
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := doc.Save(docPath); err != nil {
		return nil, err
	}
	return doc, nil
}

func sortByIndex(songs []SongResult) {
	sort.Slice(songs, func(i, j int) bool { return songs[i].Index < songs[j].Index })
}
