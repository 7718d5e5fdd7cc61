// Package config loads the daemon configuration from a YAML file, a .env
// file and MIDISYNTH_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Engine names accepted in Config.Engine.
const (
	EngineAuto     = "auto"
	EngineCoreMIDI = "coremidi"
	EngineWinMM    = "winmm"
	EngineGoMIDI   = "gomidi"
)

// Config holds the daemon settings.
type Config struct {
	Engine         string        `yaml:"engine"`
	Destination    string        `yaml:"destination"`
	ClientName     string        `yaml:"client_name"`
	Listen         string        `yaml:"listen"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	DefaultBank    int           `yaml:"default_bank"`
	DefaultProgram int           `yaml:"default_program"`
	Soundfont      string        `yaml:"soundfont"`
	InputDevice    int           `yaml:"input_device"`
	Audio          bool          `yaml:"audio"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Engine:      EngineAuto,
		ClientName:  "Go MIDI Synth",
		Listen:      "127.0.0.1:7390",
		LogLevel:    "info",
		SettleDelay: time.Second,
		InputDevice: -1,
	}
}

// DefaultEnvFile is read by Load when no env file is named.
const DefaultEnvFile = ".env"

// Load reads path (skipped when empty), then envFile (DefaultEnvFile when
// empty, ignored if missing), then the process environment. Later sources
// win.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: %s: %w", envFile, err)
	}
	env := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(env func(string) string) error {
	set := func(dst *string, key string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}
	set(&c.Engine, "MIDISYNTH_ENGINE")
	set(&c.Destination, "MIDISYNTH_DESTINATION")
	set(&c.Listen, "MIDISYNTH_LISTEN")
	set(&c.LogLevel, "MIDISYNTH_LOG_LEVEL")
	set(&c.LogFile, "MIDISYNTH_LOG_FILE")
	set(&c.Soundfont, "MIDISYNTH_SOUNDFONT")

	if v := env("MIDISYNTH_SETTLE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MIDISYNTH_SETTLE_DELAY: %w", err)
		}
		c.SettleDelay = d
	}
	if v := env("MIDISYNTH_INPUT_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MIDISYNTH_INPUT_DEVICE: %w", err)
		}
		c.InputDevice = n
	}
	return nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineAuto, EngineCoreMIDI, EngineWinMM, EngineGoMIDI:
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("config: negative settle delay %s", c.SettleDelay)
	}
	if c.DefaultBank < 0 || c.DefaultBank > 16383 {
		return fmt.Errorf("config: default bank %d outside 0-16383", c.DefaultBank)
	}
	if c.DefaultProgram < 0 || c.DefaultProgram > 127 {
		return fmt.Errorf("config: default program %d outside 0-127", c.DefaultProgram)
	}
	return nil
}
