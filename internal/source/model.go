package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pmarks/singalign/internal/timestamp"
	"github.com/pmarks/singalign/internal/wavio"
)

// Model generates clips through a singing-voice inference server's REST API:
// submit a task, poll until it completes, pick the rendered WAV up from a
// shared output volume. Every transport or task failure wraps ErrUnavailable.
type Model struct {
	apiURL       string
	apiKey       string
	outputDir    string // shared volume mount point
	pollInterval time.Duration
	http         *http.Client
}

// NewModel creates a model-backed source. outputDir is where the server
// writes rendered audio, mounted locally.
func NewModel(apiURL, apiKey, outputDir string) *Model {
	return &Model{
		apiURL:       apiURL,
		apiKey:       apiKey,
		outputDir:    outputDir,
		pollInterval: 2 * time.Second,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// SetPollInterval overrides the result polling interval.
func (m *Model) SetPollInterval(d time.Duration) {
	m.pollInterval = d
}

type synthesizeRequest struct {
	Lyrics          string  `json:"lyrics"`
	Seed            int     `json:"seed"`
	PerWordDuration float64 `json:"per_word_duration,omitempty"`
	AudioFormat     string  `json:"audio_format"`
}

type synthesizeResponse struct {
	TaskID string `json:"task_id"`
	Code   int    `json:"code"`
	Error  string `json:"error"`
}

// Task status values reported by the inference server.
const (
	taskRunning = 0
	taskDone    = 1
	taskFailed  = 2
)

type resultResponse struct {
	Status     int                `json:"status"`
	AudioPath  string             `json:"audio_path"` // relative to the shared output volume
	SampleRate int                `json:"sample_rate"`
	Words      timestamp.Sequence `json:"words"`
	Error      string             `json:"error"`
}

// WaitForHealthy blocks until the inference server responds to health checks
// or ctx is cancelled.
func (m *Model) WaitForHealthy(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.apiURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		resp, err := m.http.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		slog.Debug("model not ready, retrying", "url", m.apiURL)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(m.pollInterval):
		}
	}
}

// Generate submits a synthesis task and polls until the server renders it,
// then loads the WAV from the shared volume.
func (m *Model) Generate(ctx context.Context, req Request) (*Clip, error) {
	taskID, err := m.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := m.pollUntilDone(ctx, taskID)
	if err != nil {
		return nil, err
	}

	samples, sampleRate, err := wavio.ReadFile(filepath.Join(m.outputDir, res.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("%w: read rendered audio: %v", ErrUnavailable, err)
	}
	if res.SampleRate != 0 && res.SampleRate != sampleRate {
		return nil, fmt.Errorf("%w: server claims %d Hz but file is %d Hz", ErrUnavailable, res.SampleRate, sampleRate)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: sampleRate,
		Words:      res.Words,
		Generator:  "model",
	}, nil
}

func (m *Model) submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(synthesizeRequest{
		Lyrics:          req.Lyrics,
		Seed:            req.Seed,
		PerWordDuration: req.PerWordDuration,
		AudioFormat:     "wav",
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: submit task: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var result synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK || result.TaskID == "" {
		return "", fmt.Errorf("%w: server error (status %d): %s", ErrUnavailable, resp.StatusCode, result.Error)
	}
	return result.TaskID, nil
}

func (m *Model) pollUntilDone(ctx context.Context, taskID string) (*resultResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"task_id": taskID})

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		default:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL+"/result", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if m.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
		}

		resp, err := m.http.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%w: poll task %s: %v", ErrUnavailable, taskID, err)
		}
		var result resultResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: decode poll response: %v", ErrUnavailable, err)
		}

		switch result.Status {
		case taskDone:
			if result.AudioPath == "" {
				return nil, fmt.Errorf("%w: task %s finished without audio", ErrUnavailable, taskID)
			}
			return &result, nil
		case taskFailed:
			return nil, fmt.Errorf("%w: task %s failed: %s", ErrUnavailable, taskID, result.Error)
		default:
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(m.pollInterval):
			}
		}
	}
}
