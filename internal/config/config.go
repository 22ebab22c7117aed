// Package config loads the measurement settings from defaults, an optional
// TOML file and LABEL_MEASURE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/measure"
	"github.com/ironsheep/label-measure/internal/vision"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "LABEL_MEASURE_"

// Config holds every setting of the tool.
type Config struct {
	// Backend is the vision backend name, "native" or "opencv".
	Backend string `toml:"backend"`

	Detection detection.Options `toml:"detection"`

	// Resize downscales the image by ResizeFactor before extraction.
	Resize       bool    `toml:"resize"`
	ResizeFactor float64 `toml:"resize_factor"`

	Annotation Annotation `toml:"annotation"`
	OCR        OCR        `toml:"ocr"`
	Log        Log        `toml:"log"`
}

// Annotation controls how candidates are presented.
type Annotation struct {
	Color     string `toml:"color"`
	Thickness int    `toml:"thickness"`

	// Pause is how long a candidate is shown before the question, as a Go
	// duration such as "100ms".
	Pause string `toml:"pause"`

	// Preview is the PNG file candidates are written to. Empty disables
	// the preview.
	Preview string `toml:"preview"`
}

// OCR controls transcription of the confirmed label.
type OCR struct {
	Enabled  bool   `toml:"enabled"`
	Language string `toml:"language"`
	Tessdata string `toml:"tessdata"`
}

// Log controls the logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend:      vision.DefaultBackend,
		Detection:    detection.DefaultOptions(),
		ResizeFactor: measure.DefaultResizeFactor,
		Annotation: Annotation{
			Color:     "#00FF00",
			Thickness: imaging.DefaultStroke.Thickness,
			Pause:     "100ms",
			Preview:   "label-measure-preview.png",
		},
		OCR: OCR{Language: "eng"},
		Log: Log{Level: "info", Format: logger.FormatText},
	}
}

// LoadFile reads a TOML file over the defaults. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies the environment over the defaults.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path when it is not empty, then applies the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from LABEL_MEASURE_* variables. Values that
// do not parse leave the setting unchanged.
func (c *Config) ApplyEnv() {
	c.Backend = getEnvOrDefault("BACKEND", c.Backend)

	d := &c.Detection
	d.EdgeLow = parseFloatOrDefault("EDGE_LOW", d.EdgeLow)
	d.EdgeHigh = parseFloatOrDefault("EDGE_HIGH", d.EdgeHigh)
	d.CloseKernel = parseIntOrDefault("CLOSE_KERNEL", d.CloseKernel)
	d.MinArea = parseFloatOrDefault("MIN_AREA", d.MinArea)
	d.MaskMarginRatio = parseFloatOrDefault("MASK_MARGIN_RATIO", d.MaskMarginRatio)
	d.MarginStrategy = detection.MarginStrategy(getEnvOrDefault("MARGIN_STRATEGY", string(d.MarginStrategy)))
	d.ApproxTolerance = parseFloatOrDefault("APPROX_TOLERANCE", d.ApproxTolerance)

	c.Resize = parseBoolOrDefault("RESIZE", c.Resize)
	c.ResizeFactor = parseFloatOrDefault("RESIZE_FACTOR", c.ResizeFactor)

	c.Annotation.Color = getEnvOrDefault("COLOR", c.Annotation.Color)
	c.Annotation.Thickness = parseIntOrDefault("THICKNESS", c.Annotation.Thickness)
	c.Annotation.Pause = getEnvOrDefault("PAUSE", c.Annotation.Pause)
	c.Annotation.Preview = getEnvOrDefault("PREVIEW", c.Annotation.Preview)

	c.OCR.Enabled = parseBoolOrDefault("OCR", c.OCR.Enabled)
	c.OCR.Language = getEnvOrDefault("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.Tessdata = getEnvOrDefault("TESSDATA", c.OCR.Tessdata)

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !isAvailable(c.Backend) {
		return fmt.Errorf("unknown backend %q: available %v", c.Backend, vision.Available())
	}
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.ResizeFactor <= 0 {
		return fmt.Errorf("resize factor must be > 0 (got %v)", c.ResizeFactor)
	}
	if _, err := c.Stroke(); err != nil {
		return err
	}
	if _, err := c.Pause(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Options returns the detection options.
func (c *Config) Options() detection.Options {
	return c.Detection
}

// Stroke returns the candidate annotation.
func (c *Config) Stroke() (imaging.Stroke, error) {
	col, err := imaging.ParseColor(c.Annotation.Color)
	if err != nil {
		return imaging.Stroke{}, fmt.Errorf("invalid annotation color: %w", err)
	}
	if c.Annotation.Thickness < 1 {
		return imaging.Stroke{}, fmt.Errorf("annotation thickness must be >= 1 (got %d)", c.Annotation.Thickness)
	}
	return imaging.Stroke{Color: col, Thickness: c.Annotation.Thickness}, nil
}

// Pause returns the candidate display pause.
func (c *Config) Pause() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Annotation.Pause))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid pause %q: use a duration such as 100ms", c.Annotation.Pause)
	}
	return d, nil
}

// EffectiveResize returns the resize factor to measure with, or 0 when
// resizing is off.
func (c *Config) EffectiveResize() float64 {
	if !c.Resize {
		return 0
	}
	return c.ResizeFactor
}

func isAvailable(name string) bool {
	for _, n := range vision.Available() {
		if n == name {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
