package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Compute types accepted by the speech engine.
var computeTypes = []interface{}{"default", "auto", "int8", "int8_float16", "int8_float32", "int16", "float16", "float32"}

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Repository RepositoryConfig  `yaml:"repository"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Media      MediaConfig       `yaml:"media"`
	ASR        ASRConfig         `yaml:"asr"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Repository.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Media.Validate(); err != nil {
		return err
	}
	return c.ASR.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RepositoryConfig holds the directory where transcripts are saved.
type RepositoryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the repository configuration.
func (c *RepositoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the search database location. The database is a
// rebuildable mirror of the repository index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MediaConfig controls the ffmpeg conversion step.
//
// An empty FFmpegPath resolves "ffmpeg" on PATH; an empty ScratchDir uses the
// system temporary directory; a zero Timeout means no limit.
type MediaConfig struct {
	FFmpegPath string        `yaml:"ffmpeg_path"`
	ScratchDir string        `yaml:"scratch_dir"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ASRConfig selects the speech engine.
type ASRConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Python      string `yaml:"python"`
	Model       string `yaml:"model"`
	ComputeType string `yaml:"compute_type"`
	BeamSize    int    `yaml:"beam_size"`
	VADFilter   bool   `yaml:"vad_filter"`
	Language    string `yaml:"language"`
}

// Validate validates the ASR configuration. A disabled engine needs no model.
func (c *ASRConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.ComputeType, validation.Required, validation.In(computeTypes...)),
		validation.Field(&c.BeamSize, validation.Required, validation.Min(1), validation.Max(20)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Repository: RepositoryConfig{
			Path: "./transcriptions",
		},
		SQLite: SQLiteConfig{
			Path: "./scriptorium.db",
		},
		Media: MediaConfig{
			Timeout: 30 * time.Minute,
		},
		ASR: ASRConfig{
			Enabled:     true,
			Python:      "python3",
			Model:       "large-v3",
			ComputeType: "float16",
			BeamSize:    5,
			VADFilter:   true,
		},
	}
}
