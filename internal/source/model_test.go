package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pmarks/singalign/internal/synth"
	"github.com/pmarks/singalign/internal/wavio"
)

func TestOracleGenerate(t *testing.T) {
	clip, err := NewOracle().Generate(context.Background(), Request{Lyrics: "hello world", Seed: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if clip.Generator != "oracle" {
		t.Errorf("Generator = %q, want oracle", clip.Generator)
	}
	if len(clip.Words) != 2 || clip.Words[0].Text != "hello" {
		t.Errorf("words = %+v, want hello/world", clip.Words)
	}
	if len(clip.Samples) == 0 || clip.SampleRate <= 0 {
		t.Errorf("empty clip: %d samples at %d Hz", len(clip.Samples), clip.SampleRate)
	}
}

func TestOracleGenerateEmptyLyrics(t *testing.T) {
	if _, err := NewOracle().Generate(context.Background(), Request{Lyrics: "  "}); err == nil {
		t.Error("empty lyrics should error")
	}
}

// fakeServer is a minimal singing-voice inference server: one pending poll,
// then done with a rendered WAV on the shared volume.
func fakeServer(t *testing.T, outputDir string, failTask bool) *httptest.Server {
	t.Helper()

	res, err := synth.Synthesize([]string{"fake", "model"}, 9, synth.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := wavio.WriteFile(filepath.Join(outputDir, "take_1.wav"), res.Samples, res.SampleRate); err != nil {
		t.Fatal(err)
	}

	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/synthesize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"task_id": "task-1", "code": 200})
	})
	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			json.NewEncoder(w).Encode(map[string]any{"status": taskRunning})
			return
		}
		if failTask {
			json.NewEncoder(w).Encode(map[string]any{"status": taskFailed, "error": "render exploded"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":      taskDone,
			"audio_path":  "take_1.wav",
			"sample_rate": res.SampleRate,
			"words":       res.Words,
		})
	})
	return httptest.NewServer(mux)
}

func TestModelGenerate(t *testing.T) {
	dir := t.TempDir()
	srv := fakeServer(t, dir, false)
	defer srv.Close()

	m := NewModel(srv.URL, "", dir)
	m.SetPollInterval(time.Millisecond)

	if err := m.WaitForHealthy(context.Background()); err != nil {
		t.Fatalf("WaitForHealthy: %v", err)
	}

	clip, err := m.Generate(context.Background(), Request{Lyrics: "fake model", Seed: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if clip.Generator != "model" {
		t.Errorf("Generator = %q, want model", clip.Generator)
	}
	if clip.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", clip.SampleRate)
	}
	if len(clip.Words) != 2 {
		t.Errorf("words = %+v, want 2 entries", clip.Words)
	}
	if len(clip.Samples) == 0 {
		t.Error("clip has no samples")
	}
}

func TestModelTaskFailure(t *testing.T) {
	dir := t.TempDir()
	srv := fakeServer(t, dir, true)
	defer srv.Close()

	m := NewModel(srv.URL, "", dir)
	m.SetPollInterval(time.Millisecond)

	_, err := m.Generate(context.Background(), Request{Lyrics: "fake model", Seed: 9})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("failed task: err = %v, want ErrUnavailable", err)
	}
}

func TestModelUnreachable(t *testing.T) {
	m := NewModel("http://127.0.0.1:1", "", t.TempDir())
	m.SetPollInterval(time.Millisecond)

	_, err := m.Generate(context.Background(), Request{Lyrics: "hello", Seed: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("unreachable server: err = %v, want ErrUnavailable", err)
	}
}

func TestModelPollCancellation(t *testing.T) {
	dir := t.TempDir()

	mux := http.NewServeMux()
	mux.HandleFunc("/synthesize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"task_id": "task-stuck", "code": 200})
	})
	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": taskRunning})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := NewModel(srv.URL, "", dir)
	m.SetPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Generate(ctx, Request{Lyrics: "stuck", Seed: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("cancelled poll: err = %v, want ErrUnavailable", err)
	}
}
