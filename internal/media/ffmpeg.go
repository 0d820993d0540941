// Package media converts arbitrary audio/video input into mono 16 kHz WAV via ffmpeg.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/starford/scriptorium/internal/apperr"
)

// SampleRate is the output sample rate expected by the speech engine.
const SampleRate = 16000

const (
	defaultBinary = "ffmpeg"
	stderrTail    = 2048
	installHint   = "install a system ffmpeg (e.g. apt install ffmpeg, brew install ffmpeg) " +
		"or set media.ffmpeg_path to a portable binary"
)

// Normalizer wraps the external ffmpeg process.
type Normalizer struct {
	binary     string
	scratchDir string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithBinary sets the ffmpeg executable. When empty, ffmpeg is looked up on PATH.
func WithBinary(path string) Option {
	return func(n *Normalizer) { n.binary = path }
}

// WithScratchDir sets where input bytes are staged. Defaults to the system temp dir.
func WithScratchDir(dir string) Option {
	return func(n *Normalizer) { n.scratchDir = dir }
}

// WithTimeout bounds each conversion. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) { n.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Binary resolves the ffmpeg executable: the configured path first, then
// PATH. A configured path that cannot be used is logged before falling back.
func (n *Normalizer) Binary() (string, error) {
	if n.binary != "" {
		p, err := exec.LookPath(n.binary)
		if err == nil {
			return p, nil
		}
		n.logger.Warn("media: configured ffmpeg not usable, trying PATH",
			slog.String("ffmpeg_path", n.binary),
			slog.String("error", err.Error()))
	}
	if p, err := exec.LookPath(defaultBinary); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("media: ffmpeg binary not found (%s): %w", installHint, apperr.ErrConfiguration)
}

// Normalize stages input in a uniquely named scratch file and converts it to
// a mono 16 kHz WAV at outputPath. The scratch file is removed on every path;
// cleanup failures are ignored.
func (n *Normalizer) Normalize(ctx context.Context, input []byte, outputPath string) error {
	bin, err := n.Binary()
	if err != nil {
		return err
	}

	scratch, err := os.CreateTemp(n.scratchDir, "scriptorium-*.input")
	if err != nil {
		return fmt.Errorf("media: create scratch file: %w", err)
	}
	scratchName := scratch.Name()
	defer func() { _ = os.Remove(scratchName) }()

	if _, err := scratch.Write(input); err != nil {
		_ = scratch.Close()
		return fmt.Errorf("media: write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return fmt.Errorf("media: close scratch file: %w", err)
	}

	return n.convert(ctx, bin, scratchName, outputPath)
}

// NormalizeFile converts an existing media file without staging a copy.
func (n *Normalizer) NormalizeFile(ctx context.Context, inputPath, outputPath string) error {
	bin, err := n.Binary()
	if err != nil {
		return err
	}
	return n.convert(ctx, bin, inputPath, outputPath)
}

func (n *Normalizer) convert(ctx context.Context, bin, inputPath, outputPath string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", fmt.Sprint(SampleRate),
		"-f", "wav",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("media: run %s (%s): %w", bin, installHint, apperr.ErrConfiguration)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("media: ffmpeg interrupted: %w", ctxErr)
		}
		return fmt.Errorf("media: ffmpeg: %v: %s: %w", err, tail(stderr.String()), apperr.ErrConversion)
	}

	n.logger.Debug("media: normalized",
		slog.String("output", outputPath),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
