// Package config loads and validates recorder options from a TOML file, with
// environment variable overrides, and watches the file for changes.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/tdaugaard/wow-recorder/internal/logging"
)

// Capture modes accepted in Options.CaptureMode.
const (
	ModeDisplayCapture = "display_capture"
	ModeWindowCapture  = "window_capture"
)

// Device selector values with special meaning. Any other value is matched
// against device ids exactly.
const (
	DeviceAll  = "all"
	DeviceNone = "none"
)

// Options describes one recorder configuration. A value is immutable once
// handed to the recorder; changes are applied by passing a fresh Options to
// Reconfigure.
type Options struct {
	Engine EngineOptions `toml:"engine"`

	CaptureMode      string `toml:"capture_mode"`
	DisplayIndex     int    `toml:"display_index"` // 1-based
	OutputResolution string `toml:"output_resolution"`
	Bitrate          int    `toml:"bitrate_kbps"`
	FPS              int    `toml:"fps"`
	Encoder          string `toml:"encoder"` // explicit name or "auto"
	BufferDir        string `toml:"buffer_dir"`

	AudioInputDevice  string `toml:"audio_input_device"`
	AudioOutputDevice string `toml:"audio_output_device"`

	Logging logging.Config `toml:"logging"`
}

// EngineOptions locate the native engine host.
type EngineOptions struct {
	URL      string `toml:"url"`
	Password string `toml:"password"`
	Locale   string `toml:"locale"`
	DataDir  string `toml:"data_dir"`
}

// Default returns options with sensible defaults applied.
func Default() Options {
	return Options{
		Engine: EngineOptions{
			URL:    "ws://localhost:4455",
			Locale: "en-US",
		},
		CaptureMode:       ModeDisplayCapture,
		DisplayIndex:      1,
		OutputResolution:  "1920x1080",
		Bitrate:           12000,
		FPS:               60,
		Encoder:           "auto",
		AudioInputDevice:  DeviceNone,
		AudioOutputDevice: DeviceAll,
	}
}

// Load reads options from path, applies env overrides, and validates.
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&opts)

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyEnvOverrides lets env vars win over file values for fields that are
// commonly set per-machine.
func applyEnvOverrides(opts *Options) {
	if v := os.Getenv("WR_ENGINE_URL"); v != "" {
		opts.Engine.URL = v
	}
	if v := os.Getenv("WR_ENGINE_PASSWORD"); v != "" {
		opts.Engine.Password = v
	}
	if v := os.Getenv("WR_BUFFER_DIR"); v != "" {
		opts.BufferDir = v
	}
	if v := os.Getenv("WR_DISPLAY_INDEX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.DisplayIndex = n
		}
	}
}

var resolutionRe = regexp.MustCompile(`^\d+x\d+$`)

// Validate checks option invariants that can be verified without the engine.
func (o Options) Validate() error {
	switch o.CaptureMode {
	case ModeDisplayCapture, ModeWindowCapture:
	default:
		return fmt.Errorf("invalid capture_mode %q: must be %q or %q",
			o.CaptureMode, ModeDisplayCapture, ModeWindowCapture)
	}
	if o.CaptureMode == ModeDisplayCapture && o.DisplayIndex < 1 {
		return fmt.Errorf("display_index must be >= 1, got %d", o.DisplayIndex)
	}
	if !resolutionRe.MatchString(o.OutputResolution) {
		return fmt.Errorf("output_resolution %q is not of the form WxH", o.OutputResolution)
	}
	if o.Bitrate <= 0 {
		return fmt.Errorf("bitrate_kbps must be positive, got %d", o.Bitrate)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", o.FPS)
	}
	if o.BufferDir == "" {
		return fmt.Errorf("buffer_dir must be set")
	}
	if o.Engine.URL == "" {
		return fmt.Errorf("engine.url must be set")
	}
	if !strings.HasPrefix(o.Engine.URL, "ws://") && !strings.HasPrefix(o.Engine.URL, "wss://") {
		return fmt.Errorf("engine.url %q must be a ws:// or wss:// URL", o.Engine.URL)
	}
	return nil
}
