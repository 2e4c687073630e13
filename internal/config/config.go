package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StyleConfig maps IR structure onto Word style names.
type StyleConfig struct {
	HeadingPrefix string // e.g. "Heading" -> "Heading 1".."Heading 9"
	BodyStyle     string
	CaptionStyle  string

	MarkLowConfidence      bool
	LowConfidenceThreshold float64
	LowConfidenceHighlight string // Word highlight colour name
}

// ImageConfig controls figure sizing and fallbacks.
type ImageConfig struct {
	MaxWidthInches  float64
	MaxHeightInches float64
	// Defaults used when intrinsic dimensions are unknown.
	DefaultWidthInches  float64
	DefaultHeightInches float64
	PlaceholderText     string
}

// ParserConfig selects options forwarded to the structural parser.
type ParserConfig struct {
	// PdftotextFallback re-extracts PDFs through the pdftotext binary
	// when native extraction yields nothing.
	PdftotextFallback bool
	// MaxInputBytes bounds how much of a source file is read.
	MaxInputBytes int64
}

// ServerConfig holds batch-service settings.
type ServerConfig struct {
	Port         string
	APIKey       string
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration
}

// Config is the resolved converter configuration. The core packages take it
// as-is; only Load touches the environment.
type Config struct {
	Style  StyleConfig
	Image  ImageConfig
	Parser ParserConfig
	Server ServerConfig

	Verbose bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Style: StyleConfig{
			HeadingPrefix:          "Heading",
			BodyStyle:              "Normal",
			CaptionStyle:           "Caption",
			MarkLowConfidence:      true,
			LowConfidenceThreshold: 0.7,
			LowConfidenceHighlight: "yellow",
		},
		Image: ImageConfig{
			MaxWidthInches:      6.0,
			MaxHeightInches:     8.0,
			DefaultWidthInches:  4.0,
			DefaultHeightInches: 3.0,
			PlaceholderText:     "[Image not available]",
		},
		Parser: ParserConfig{
			PdftotextFallback: true,
			MaxInputBytes:     209715200, // 200MB
		},
		Server: ServerConfig{
			Port:         "8091",
			WorkerCount:  4,
			MaxQueueSize: 100,
			JobTTL:       1 * time.Hour,
		},
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() Config {
	cfg := Default()

	cfg.Style.HeadingPrefix = envOr("DOCFORGE_HEADING_PREFIX", cfg.Style.HeadingPrefix)
	cfg.Style.MarkLowConfidence = envBool("DOCFORGE_MARK_LOW_CONFIDENCE", cfg.Style.MarkLowConfidence)
	cfg.Style.LowConfidenceThreshold = envFloat("DOCFORGE_CONFIDENCE_THRESHOLD", cfg.Style.LowConfidenceThreshold)
	cfg.Style.LowConfidenceHighlight = envOr("DOCFORGE_LOW_CONFIDENCE_HIGHLIGHT", cfg.Style.LowConfidenceHighlight)

	cfg.Image.MaxWidthInches = envFloat("DOCFORGE_MAX_IMAGE_WIDTH_IN", cfg.Image.MaxWidthInches)
	cfg.Image.MaxHeightInches = envFloat("DOCFORGE_MAX_IMAGE_HEIGHT_IN", cfg.Image.MaxHeightInches)
	cfg.Image.DefaultWidthInches = envFloat("DOCFORGE_DEFAULT_IMAGE_WIDTH_IN", cfg.Image.DefaultWidthInches)
	cfg.Image.DefaultHeightInches = envFloat("DOCFORGE_DEFAULT_IMAGE_HEIGHT_IN", cfg.Image.DefaultHeightInches)

	cfg.Parser.PdftotextFallback = envBool("DOCFORGE_PDFTOTEXT_FALLBACK", cfg.Parser.PdftotextFallback)
	cfg.Parser.MaxInputBytes = envInt64("DOCFORGE_MAX_INPUT_BYTES", cfg.Parser.MaxInputBytes)

	cfg.Server.Port = envOr("DOCFORGE_PORT", cfg.Server.Port)
	cfg.Server.APIKey = os.Getenv("DOCFORGE_API_KEY")
	cfg.Server.WorkerCount = envInt("DOCFORGE_WORKER_COUNT", cfg.Server.WorkerCount)
	cfg.Server.MaxQueueSize = envInt("DOCFORGE_MAX_QUEUE_SIZE", cfg.Server.MaxQueueSize)
	cfg.Server.JobTTL = envDuration("DOCFORGE_JOB_TTL", cfg.Server.JobTTL)

	cfg.Verbose = envBool("DOCFORGE_VERBOSE", cfg.Verbose)

	return cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Style.LowConfidenceThreshold < 0 || c.Style.LowConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %g outside [0,1]", c.Style.LowConfidenceThreshold)
	}
	if c.Image.MaxWidthInches <= 0 || c.Image.MaxHeightInches <= 0 {
		return fmt.Errorf("max image dimensions must be positive")
	}
	if c.Image.DefaultWidthInches <= 0 || c.Image.DefaultHeightInches <= 0 {
		return fmt.Errorf("default image dimensions must be positive")
	}
	if c.Server.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.Parser.MaxInputBytes <= 0 {
		return fmt.Errorf("max input bytes must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
