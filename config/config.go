// Package config loads tool defaults for the markup core.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, a .env file, and PDFMARKUP_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
)

// Config holds all tunables of the markup core.
type Config struct {
	Author    string                 `yaml:"author"`
	LogLevel  string                 `yaml:"logLevel"`
	Editor    EditorConfig           `yaml:"editor"`
	Encoder   EncoderConfig          `yaml:"encoder"`
	Selection SelectionConfig        `yaml:"selection"`
	Raster    RasterConfig           `yaml:"raster"`
	Export    ExportConfig           `yaml:"export"`
	Styles    map[string]StyleConfig `yaml:"styles"`
}

type EditorConfig struct {
	// MinSize is the smallest accepted bounding-box side for single-gesture
	// shapes, in unscaled page units.
	MinSize float64 `yaml:"minSize"`
	// DebounceMs is the idle time after which freehand strokes stop merging.
	DebounceMs int `yaml:"debounceMs"`
	// CloseRadius is the distance to the first vertex that completes a
	// multi-click shape.
	CloseRadius float64 `yaml:"closeRadius"`
	NoteSize    float64 `yaml:"noteSize"`
}

type EncoderConfig struct {
	EdgeStep     float64 `yaml:"edgeStep"`
	EllipseStep  float64 `yaml:"ellipseStepDegrees"`
	CloudPadding float64 `yaml:"cloudPadding"`
	CurveSteps   int     `yaml:"curveSteps"`
}

type SelectionConfig struct {
	DeleteOnDoubleClick bool    `yaml:"deleteOnDoubleClick"`
	HandleSize          float64 `yaml:"handleSize"`
}

type RasterConfig struct {
	DPI        float64 `yaml:"dpi"`
	Padding    int     `yaml:"padding"`
	CacheTTLMs int     `yaml:"cacheTTLMs"`
	MaxWidth   float64 `yaml:"maxWidth"`
}

type ExportConfig struct {
	// Compression is the zlib level of written streams; 0 disables it.
	Compression int  `yaml:"compression"`
	Appearances bool `yaml:"appearances"`
}

// StyleConfig overrides the default style of one annotation kind.
type StyleConfig struct {
	Color       string  `yaml:"color"`
	StrokeWidth float64 `yaml:"strokeWidth"`
	Opacity     float64 `yaml:"opacity"`
	FontSize    float64 `yaml:"fontSize"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Editor: EditorConfig{
			MinSize:     8,
			DebounceMs:  1000,
			CloseRadius: 8,
			NoteSize:    24,
		},
		Encoder: EncoderConfig{
			EdgeStep:     0.5,
			EllipseStep:  0.5,
			CloudPadding: 5,
			CurveSteps:   16,
		},
		Selection: SelectionConfig{
			DeleteOnDoubleClick: true,
			HandleSize:          8,
		},
		Raster: RasterConfig{
			DPI:        144,
			Padding:    4,
			CacheTTLMs: 5 * 60 * 1000,
			MaxWidth:   300,
		},
		Export: ExportConfig{
			Compression: 6,
			Appearances: true,
		},
		Styles: map[string]StyleConfig{},
	}
}

// Debounce returns the stroke merge window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Editor.DebounceMs) * time.Millisecond
}

// CacheTTL returns the raster cache expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Raster.CacheTTLMs) * time.Millisecond
}

// Load reads the YAML file at path (optional; "" skips it), then applies
// .env and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is not an error; variables already set win.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the editor cannot work with.
func (c *Config) Validate() error {
	if c.Editor.MinSize < 0 {
		return fmt.Errorf("editor.minSize must not be negative")
	}
	if c.Editor.DebounceMs < 0 {
		return fmt.Errorf("editor.debounceMs must not be negative")
	}
	if c.Encoder.EdgeStep <= 0 {
		return fmt.Errorf("encoder.edgeStep must be greater than 0")
	}
	if c.Encoder.EllipseStep <= 0 || c.Encoder.EllipseStep > 90 {
		return fmt.Errorf("encoder.ellipseStepDegrees must be in (0, 90]")
	}
	if c.Encoder.CurveSteps <= 0 {
		return fmt.Errorf("encoder.curveSteps must be greater than 0")
	}
	if c.Raster.DPI <= 0 {
		return fmt.Errorf("raster.dpi must be greater than 0")
	}
	if c.Export.Compression < -1 || c.Export.Compression > 9 {
		return fmt.Errorf("export.compression must be in [-1, 9]")
	}
	for kind, st := range c.Styles {
		if st.Opacity < 0 || st.Opacity > 1 {
			return fmt.Errorf("styles.%s.opacity must be in [0, 1]", kind)
		}
	}
	return nil
}

const envPrefix = "PDFMARKUP_"

func applyEnv(cfg *Config) error {
	if v := getEnv("AUTHOR"); v != "" {
		cfg.Author = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getEnv("MIN_SIZE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sMIN_SIZE must be a number: %w", envPrefix, err)
		}
		cfg.Editor.MinSize = f
	}
	if v := getEnv("DEBOUNCE_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDEBOUNCE_MS must be an integer: %w", envPrefix, err)
		}
		cfg.Editor.DebounceMs = n
	}
	if v := getEnv("DELETE_ON_DBLCLICK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDELETE_ON_DBLCLICK must be a boolean: %w", envPrefix, err)
		}
		cfg.Selection.DeleteOnDoubleClick = b
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}
