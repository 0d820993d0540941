package asr

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/models"
)

//go:embed assets/faster_whisper.py
var helperScript string

// FasterWhisper runs the faster-whisper Python package in a subprocess. One
// process is started per call, so the value is safe for concurrent use.
type FasterWhisper struct {
	python      string
	model       string
	computeType string
	logger      *slog.Logger
}

// FasterWhisperConfig selects the interpreter and model.
type FasterWhisperConfig struct {
	Python string
	Model  string
	Logger *slog.Logger
}

// FasterWhisperOpener returns an Opener that probes the model with each
// compute type before handing out an engine.
func FasterWhisperOpener(cfg FasterWhisperConfig) Opener {
	return func(ctx context.Context, computeType string) (Engine, error) {
		python := cfg.Python
		if python == "" {
			python = "python3"
		}
		bin, err := exec.LookPath(python)
		if err != nil {
			return nil, fmt.Errorf("python interpreter %q not found (set asr.python): %w", python, apperr.ErrConfiguration)
		}
		logger := cfg.Logger
		if logger == nil {
			logger = slog.Default()
		}
		fw := &FasterWhisper{python: bin, model: cfg.Model, computeType: computeType, logger: logger}
		if _, err := fw.run(ctx, "--probe"); err != nil {
			return nil, err
		}
		logger.Info("asr: model ready",
			slog.String("model", cfg.Model),
			slog.String("compute_type", computeType))
		return fw, nil
	}
}

// ComputeType returns the compute type the engine was opened with.
func (f *FasterWhisper) ComputeType() string { return f.computeType }

type helperOutput struct {
	Segments []models.Segment        `json:"segments"`
	Info     models.TranscriptionInfo `json:"info"`
}

// Transcribe runs the model over audioPath.
func (f *FasterWhisper) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	args := []string{"--audio", audioPath, "--beam-size", strconv.Itoa(opts.BeamSize)}
	if opts.VADFilter {
		args = append(args, "--vad-filter")
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	out, err := f.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var res helperOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("asr: decode helper output: %w", err)
	}
	if res.Segments == nil {
		res.Segments = []models.Segment{}
	}
	f.logger.Debug("asr: transcribed",
		slog.String("audio", audioPath),
		slog.Int("segments", len(res.Segments)),
		slog.String("language", res.Info.Language))
	return &Result{Segments: res.Segments, Info: res.Info}, nil
}

func (f *FasterWhisper) run(ctx context.Context, extra ...string) ([]byte, error) {
	args := append([]string{"-c", helperScript, "--model", f.model, "--compute-type", f.computeType}, extra...)
	cmd := exec.CommandContext(ctx, f.python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("asr: interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("asr: helper failed: %s", lastLine(stderr.String()))
		}
		return nil, fmt.Errorf("asr: run helper: %w", err)
	}
	return stdout.Bytes(), nil
}

// lastLine returns the final non-empty line of s, usually the Python exception.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
