// Command singalign generates synthetic singing-voice fixtures with
// word-level timestamps and validates (audio, timestamp) pairs against the
// well-formedness and energy checks used by the lyric-alignment benchmark.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/pmarks/singalign/internal/batch"
	"github.com/pmarks/singalign/internal/logging"
	"github.com/pmarks/singalign/internal/results"
	"github.com/pmarks/singalign/internal/source"
	"github.com/pmarks/singalign/internal/synth"
	"github.com/pmarks/singalign/internal/timestamp"
	"github.com/pmarks/singalign/internal/validate"
	"github.com/pmarks/singalign/internal/wavio"
)

const version = "0.2.0"

// CLI defines the command-line interface for singalign.
var CLI struct {
	LogLevel  string `help:"Log level (debug|info|warn|error)" default:"info" env:"SINGALIGN_LOG_LEVEL"`
	LogFormat string `help:"Log format (text|json)" default:"text" env:"SINGALIGN_LOG_FORMAT"`

	Generate GenerateCmd `cmd:"" help:"Generate one synthetic song with ground-truth timestamps"`
	Validate ValidateCmd `cmd:"" help:"Validate a timestamp file against its audio"`
	Batch    BatchCmd    `cmd:"" help:"Generate and validate a batch of songs"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ModelFlags configure the singing-voice inference server connection.
type ModelFlags struct {
	ModelURL       string `help:"Inference server URL (required for --source=model)" env:"SINGALIGN_MODEL_URL"`
	ModelKey       string `help:"Inference server API key" env:"SINGALIGN_MODEL_KEY"`
	ModelOutputDir string `help:"Shared volume where the server writes audio" env:"SINGALIGN_MODEL_OUTPUT_DIR" default:"/model-outputs"`
}

func (m ModelFlags) buildSource(kind string) (source.Source, error) {
	switch kind {
	case "model":
		if m.ModelURL == "" {
			return nil, fmt.Errorf("--source=model requires --model-url (or SINGALIGN_MODEL_URL)")
		}
		return source.NewModel(m.ModelURL, m.ModelKey, m.ModelOutputDir), nil
	default:
		return source.NewOracle(), nil
	}
}

// ThresholdFlags expose the validator thresholds.
type ThresholdFlags struct {
	MinWordDuration  float64 `help:"Shortest plausible word, seconds" default:"0.05" env:"SINGALIGN_MIN_WORD_DURATION"`
	MaxWordDuration  float64 `help:"Longest plausible word, seconds" default:"10.0" env:"SINGALIGN_MAX_WORD_DURATION"`
	SilenceRms       float64 `name:"silence-rms" help:"Mean RMS at or below this counts as silent" default:"0.01" env:"SINGALIGN_SILENCE_RMS"`
	SilenceTolerance float64 `help:"Max fraction of silent words" default:"0.10" env:"SINGALIGN_SILENCE_TOLERANCE"`
	HopLength        int     `help:"Energy curve hop, samples" default:"512" env:"SINGALIGN_HOP_LENGTH"`
}

func (t ThresholdFlags) config() validate.Config {
	return validate.Config{
		MinWordDuration:  t.MinWordDuration,
		MaxWordDuration:  t.MaxWordDuration,
		SilenceRMS:       t.SilenceRms,
		SilenceTolerance: t.SilenceTolerance,
		HopLength:        t.HopLength,
	}
}

// GenerateCmd renders one song to a WAV file plus a timestamp document.
type GenerateCmd struct {
	Out        string  `required:"" help:"Output WAV path" type:"path"`
	Timestamps string  `required:"" help:"Output timestamps JSON path" type:"path"`
	Index      int     `default:"1" help:"Song index, selects stock lyrics and the default seed"`
	Seed       int     `default:"-1" help:"Synthesis seed (default: the song index)"`
	Lyrics     string  `help:"Lyrics override (default: stock lyrics for the index)"`
	PerWord    float64 `default:"0.8" help:"Seconds per word slot"`
	Source     string  `default:"oracle" enum:"oracle,model" help:"Waveform source"`
	ModelFlags
}

func (c *GenerateCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := c.buildSource(c.Source)
	if err != nil {
		return err
	}

	lyrics := c.Lyrics
	if lyrics == "" {
		lyrics = synth.LyricsForIndex(c.Index)
	}
	seed := c.Seed
	if seed < 0 {
		seed = c.Index
	}

	clip, err := src.Generate(ctx, source.Request{
		Lyrics:          lyrics,
		Seed:            seed,
		PerWordDuration: c.PerWord,
	})
	if err != nil {
		return fmt.Errorf("generate song %d: %w", c.Index, err)
	}

	songID := fmt.Sprintf("song_%03d", c.Index)
	doc, err := batch.WriteFixture(c.Out, c.Timestamps, songID, lyrics, uuid.NewString(), clip)
	if err != nil {
		return err
	}

	fmt.Printf("Generated: %s\n", c.Out)
	fmt.Printf("  Song ID:    %s\n", songID)
	fmt.Printf("  Generator:  %s\n", clip.Generator)
	fmt.Printf("  Duration:   %.3fs (%d words)\n", doc.Duration, len(doc.Words))
	fmt.Printf("  Timestamps: %s\n", c.Timestamps)
	return nil
}

// ValidateCmd checks one (audio, timestamps) pair and exits non-zero when any
// check fails.
type ValidateCmd struct {
	Audio      string `arg:"" help:"Audio file (WAV; anything else with --ffmpeg)" type:"existingfile"`
	Timestamps string `arg:"" help:"Timestamps JSON file" type:"existingfile"`
	FFmpeg     bool   `help:"Decode the audio through ffmpeg instead of the WAV reader"`
	SampleRate int    `default:"22050" help:"Decode sample rate when using --ffmpeg"`
	ThresholdFlags
}

func (c *ValidateCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var samples []float64
	var sampleRate int
	var err error
	if c.FFmpeg {
		sampleRate = c.SampleRate
		samples, err = wavio.DecodeFFmpeg(ctx, c.Audio, sampleRate)
	} else {
		samples, sampleRate, err = wavio.ReadFile(c.Audio)
	}
	if err != nil {
		return err
	}

	doc, err := timestamp.Load(c.Timestamps)
	if err != nil {
		return err
	}

	rep := validate.New(c.config()).Validate(samples, sampleRate, doc.Words)
	printReport(c.Audio, rep)
	if !rep.Passed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func printReport(audioPath string, rep validate.Report) {
	line := strings.Repeat("=", 50)
	fmt.Println(line)
	fmt.Printf("VALIDATION RESULTS: %s\n", audioPath)
	fmt.Println(line)
	for _, c := range rep.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("%-30s: %s\n", c.Name, status)
		for _, v := range c.Violations {
			fmt.Printf("    word %d %q: %s\n", v.Index, v.Word, v.Detail)
		}
	}
	fmt.Println(line)
	if rep.Passed {
		fmt.Println("All validation checks passed")
	} else {
		fmt.Println("Some validation checks FAILED")
	}
}

// BatchCmd generates and validates many songs in parallel.
type BatchCmd struct {
	Count          int     `default:"10" help:"Number of songs to generate"`
	OutDir         string  `default:"fixtures" help:"Output directory" type:"path"`
	Workers        int     `default:"4" help:"Parallel songs"`
	DB             string  `help:"Results database path (default: <out-dir>/results.db)"`
	NoDB           bool    `help:"Skip the results database"`
	Source         string  `default:"oracle" enum:"oracle,model" help:"Waveform source"`
	FallbackOracle bool    `help:"Fall back to the oracle when the model is unavailable"`
	PerWord        float64 `default:"0.8" help:"Seconds per word slot"`
	ModelFlags
	ThresholdFlags
}

func (c *BatchCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := c.buildSource(c.Source)
	if err != nil {
		return err
	}

	var store *results.Store
	if !c.NoDB {
		dbPath := c.DB
		if dbPath == "" {
			if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			dbPath = filepath.Join(c.OutDir, "results.db")
		}
		store, err = results.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runner := batch.NewRunner(src, validate.New(c.config()), store, batch.Config{
		Count:            c.Count,
		OutDir:           c.OutDir,
		Workers:          c.Workers,
		PerWordDuration:  c.PerWord,
		FallbackToOracle: c.FallbackOracle,
	})
	sum, songs, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Batch complete: %d generated, %d passed, %d failed, %d skipped, %d errors\n",
		sum.Generated, sum.Passed, sum.Failed, sum.Skipped, sum.Errors)
	for _, res := range songs {
		if res.Err == nil && !res.Skipped && !res.Report.Passed {
			printReport(res.AudioPath, res.Report)
		}
	}

	if sum.Failed > 0 || sum.Errors > 0 {
		return fmt.Errorf("%d of %d songs did not validate cleanly", sum.Failed+sum.Errors, c.Count)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("singalign %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("singalign"),
		kong.Description("Synthetic singing-voice fixtures and timestamp validation for lyric alignment"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err := logging.Setup(CLI.LogLevel, CLI.LogFormat); err != nil {
		ctx.FatalIfErrorf(err)
	}
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
