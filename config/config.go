// Package config loads, validates and persists the YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"lautenbacher.net/ledstrip/effect"
)

const CONFILE = "config.yml"

const (
	PlatformTUI  = "tui"
	PlatformRPI  = "rpi"
	PlatformNone = "none"

	LEDTypeWS2801 = "ws2801"
	LEDTypeAPA102 = "apa102"

	GPIOLibraryRPIO   = "rpio"
	GPIOLibraryPeriph = "periph.io"
)

type Config struct {
	Strip      StripConfig      `yaml:"Strip" json:"Strip"`
	Hardware   HardwareConfig   `yaml:"Hardware" json:"Hardware"`
	Logging    LoggingConfig    `yaml:"Logging" json:"Logging"`
	Web        WebConfig        `yaml:"Web" json:"Web"`
	Redis      RedisConfig      `yaml:"Redis" json:"Redis"`
	NightLight NightLightConfig `yaml:"NightLight" json:"NightLight"`
}

type StripConfig struct {
	LedsTotal         int                     `yaml:"LedsTotal" json:"LedsTotal"`
	DefaultBrightness int                     `yaml:"DefaultBrightness" json:"DefaultBrightness"`
	TickDelay         time.Duration           `yaml:"TickDelay" json:"TickDelay"`
	InitialEffect     string                  `yaml:"InitialEffect" json:"InitialEffect"`
	Effects           map[string]TuningConfig `yaml:"Effects,omitempty" json:"Effects,omitempty"`
}

// TuningConfig overrides the animation parameters of one effect. Zero
// fields keep the built-in value.
type TuningConfig struct {
	StepSize      int           `yaml:"StepSize,omitempty" json:"StepSize,omitempty"`
	StepDelay     time.Duration `yaml:"StepDelay,omitempty" json:"StepDelay,omitempty"`
	FrameDelay    time.Duration `yaml:"FrameDelay,omitempty" json:"FrameDelay,omitempty"`
	MinBrightness int           `yaml:"MinBrightness,omitempty" json:"MinBrightness,omitempty"`
	MaxBrightness int           `yaml:"MaxBrightness,omitempty" json:"MaxBrightness,omitempty"`
}

// Apply copies the non-zero fields onto t.
func (c TuningConfig) Apply(t *effect.Tuning) {
	if c.StepSize > 0 {
		t.StepSize = c.StepSize
	}
	if c.StepDelay > 0 {
		t.StepDelay = c.StepDelay
	}
	if c.FrameDelay > 0 {
		t.FrameDelay = c.FrameDelay
	}
	if c.MinBrightness > 0 {
		t.MinBrightness = c.MinBrightness
	}
	if c.MaxBrightness > 0 {
		t.MaxBrightness = c.MaxBrightness
	}
}

type HardwareConfig struct {
	Platform          string          `yaml:"Platform" json:"Platform"`
	LEDType           string          `yaml:"LEDType" json:"LEDType"`
	SPIFrequency      int             `yaml:"SPIFrequency" json:"SPIFrequency"`
	GPIOLibrary       string          `yaml:"GPIOLibrary" json:"GPIOLibrary"`
	SPIDevice         string          `yaml:"SPIDevice" json:"SPIDevice"`
	ColorCorrection   []float64       `yaml:"ColorCorrection,flow" json:"ColorCorrection"`
	APA102_Brightness byte            `yaml:"APA102_Brightness" json:"APA102_Brightness"`
	Segments          []SegmentConfig `yaml:"Segments" json:"Segments"`
}

// SegmentConfig describes a contiguous, inclusive range of the strip.
type SegmentConfig struct {
	FirstLed int  `yaml:"FirstLed" json:"FirstLed"`
	LastLed  int  `yaml:"LastLed" json:"LastLed"`
	Reverse  bool `yaml:"Reverse" json:"Reverse"`
}

type LoggingConfig struct {
	TUI LogConfig `yaml:"TUI" json:"TUI"`
	HW  LogConfig `yaml:"HW" json:"HW"`
}

type LogConfig struct {
	Level  string `yaml:"Level" json:"Level"`
	Format string `yaml:"Format" json:"Format"`
	File   string `yaml:"File" json:"File"`
}

type WebConfig struct {
	Enabled bool   `yaml:"Enabled" json:"Enabled"`
	Listen  string `yaml:"Listen" json:"Listen"`
	// Origins besides the server's own host allowed to open the frame
	// websocket, e.g. "http://dashboard.local:3000".
	AllowedOrigins []string `yaml:"AllowedOrigins,omitempty" json:"AllowedOrigins,omitempty"`
}

type RedisConfig struct {
	Enabled         bool   `yaml:"Enabled" json:"Enabled"`
	Addr            string `yaml:"Addr" json:"Addr"`
	Password        string `yaml:"Password" json:"-"`
	DB              int    `yaml:"DB" json:"DB"`
	DiscoveryPrefix string `yaml:"DiscoveryPrefix" json:"DiscoveryPrefix"`
	ClientID        string `yaml:"ClientID" json:"ClientID"`
	Name            string `yaml:"Name" json:"Name"`
}

type NightLightConfig struct {
	Enabled    bool    `yaml:"Enabled" json:"Enabled"`
	Latitude   float64 `yaml:"Latitude" json:"Latitude"`
	Longitude  float64 `yaml:"Longitude" json:"Longitude"`
	Brightness int     `yaml:"Brightness" json:"Brightness"`
	Effect     string  `yaml:"Effect" json:"Effect"`
}

// envOverrides is prefilled from the file so unset variables keep the
// file's value.
type envOverrides struct {
	LedsTotal     int    `env:"LEDSTRIP_LEDS_TOTAL"`
	Platform      string `env:"LEDSTRIP_PLATFORM"`
	WebListen     string `env:"LEDSTRIP_WEB_LISTEN"`
	RedisAddr     string `env:"LEDSTRIP_REDIS_ADDR"`
	RedisPassword string `env:"LEDSTRIP_REDIS_PASSWORD"`
	LogLevel      string `env:"LEDSTRIP_LOG_LEVEL"`
}

// ReadConfig reads cfile, applies defaults and LEDSTRIP_* environment
// overrides and validates the result.
func ReadConfig(cfile string) (*Config, error) {
	conf, err := readFile(cfile)
	if err != nil {
		return nil, err
	}
	if err := conf.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", cfile, err)
	}
	return conf, nil
}

func readFile(cfile string) (*Config, error) {
	data, err := os.ReadFile(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't read config file %s: %w", cfile, err)
	}
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.applyDefaults()
	return &conf, nil
}

func (c *Config) applyDefaults() {
	if c.Strip.DefaultBrightness == 0 {
		c.Strip.DefaultBrightness = 128
	}
	if c.Strip.TickDelay == 0 {
		c.Strip.TickDelay = 50 * time.Millisecond
	}
	if c.Strip.InitialEffect == "" {
		c.Strip.InitialEffect = string(effect.Static)
	}
	if c.Hardware.Platform == "" {
		c.Hardware.Platform = PlatformTUI
	}
	if c.Hardware.LEDType == "" {
		c.Hardware.LEDType = LEDTypeAPA102
	}
	if c.Hardware.SPIFrequency == 0 {
		c.Hardware.SPIFrequency = 1_000_000
	}
	if c.Hardware.GPIOLibrary == "" {
		c.Hardware.GPIOLibrary = GPIOLibraryRPIO
	}
	if len(c.Hardware.ColorCorrection) == 0 {
		c.Hardware.ColorCorrection = []float64{1, 1, 1}
	}
	if c.Hardware.APA102_Brightness == 0 {
		c.Hardware.APA102_Brightness = 31
	}
	if c.Web.Listen == "" {
		c.Web.Listen = ":8080"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.DiscoveryPrefix == "" {
		c.Redis.DiscoveryPrefix = "homeassistant"
	}
	if c.Redis.ClientID == "" {
		c.Redis.ClientID = "ledstrip"
	}
	if c.Redis.Name == "" {
		c.Redis.Name = "LED Strip"
	}
	if c.NightLight.Brightness == 0 {
		c.NightLight.Brightness = 64
	}
	if c.NightLight.Effect == "" {
		c.NightLight.Effect = string(effect.Static)
	}
}

func (c *Config) applyEnv() error {
	o := envOverrides{
		LedsTotal:     c.Strip.LedsTotal,
		Platform:      c.Hardware.Platform,
		WebListen:     c.Web.Listen,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
	}
	if err := env.Parse(&o); err != nil {
		return err
	}
	c.Strip.LedsTotal = o.LedsTotal
	c.Hardware.Platform = o.Platform
	c.Web.Listen = o.WebListen
	c.Redis.Addr = o.RedisAddr
	c.Redis.Password = o.RedisPassword
	if o.LogLevel != "" {
		c.Logging.TUI.Level = o.LogLevel
		c.Logging.HW.Level = o.LogLevel
	}
	return nil
}

// Validate checks the configuration and reports every violation at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	total := c.Strip.LedsTotal
	if total < 1 {
		add("Strip.LedsTotal must be at least 1, got %d", total)
	}
	if c.Strip.DefaultBrightness < 1 || c.Strip.DefaultBrightness > 255 {
		add("Strip.DefaultBrightness must be between 1 and 255, got %d", c.Strip.DefaultBrightness)
	}
	if c.Strip.TickDelay <= 0 {
		add("Strip.TickDelay must be positive, got %v", c.Strip.TickDelay)
	}
	if !knownEffect(c.Strip.InitialEffect) {
		add("Strip.InitialEffect %q is not a known effect", c.Strip.InitialEffect)
	}
	for name, t := range c.Strip.Effects {
		if !knownEffect(name) {
			add("Strip.Effects: %q is not a known effect", name)
		}
		if t.StepSize < 0 || t.MinBrightness < 0 || t.MaxBrightness < 0 {
			add("Strip.Effects.%s: values must be non-negative", name)
		}
		if t.StepDelay < 0 || t.FrameDelay < 0 {
			add("Strip.Effects.%s: delays must be non-negative", name)
		}
		if t.MinBrightness > 255 || t.MaxBrightness > 255 {
			add("Strip.Effects.%s: brightness bounds must be between 0 and 255", name)
		}
		if t.MaxBrightness > 0 && t.MinBrightness > t.MaxBrightness {
			add("Strip.Effects.%s: MinBrightness must not exceed MaxBrightness", name)
		}
	}

	errs = append(errs, c.Hardware.validate(total)...)

	for _, l := range []struct {
		name string
		cfg  LogConfig
	}{{"TUI", c.Logging.TUI}, {"HW", c.Logging.HW}} {
		if l.cfg.Format != "" && !slices.Contains([]string{"text", "json"}, strings.ToLower(l.cfg.Format)) {
			add("Logging.%s.Format must be text or json, got %q", l.name, l.cfg.Format)
		}
	}

	if c.Web.Enabled && c.Web.Listen == "" {
		add("Web.Listen must be set when the web server is enabled")
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("Redis.Addr must be set when Redis is enabled")
		}
		if c.Redis.DB < 0 {
			add("Redis.DB must be non-negative, got %d", c.Redis.DB)
		}
	}

	n := c.NightLight
	if n.Latitude < -90 || n.Latitude > 90 {
		add("NightLight.Latitude must be between -90 and 90, got %v", n.Latitude)
	}
	if n.Longitude < -180 || n.Longitude > 180 {
		add("NightLight.Longitude must be between -180 and 180, got %v", n.Longitude)
	}
	if n.Brightness < 1 || n.Brightness > 255 {
		add("NightLight.Brightness must be between 1 and 255, got %d", n.Brightness)
	}
	if !knownEffect(n.Effect) {
		add("NightLight.Effect %q is not a known effect", n.Effect)
	}

	return errors.Join(errs...)
}

func (h HardwareConfig) validate(total int) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch h.Platform {
	case PlatformTUI, PlatformNone:
	case PlatformRPI:
		if h.LEDType != LEDTypeWS2801 && h.LEDType != LEDTypeAPA102 {
			add("Hardware.LEDType must be %s or %s, got %q", LEDTypeWS2801, LEDTypeAPA102, h.LEDType)
		}
		if h.GPIOLibrary != GPIOLibraryRPIO && h.GPIOLibrary != GPIOLibraryPeriph {
			add("Hardware.GPIOLibrary must be %s or %s, got %q", GPIOLibraryRPIO, GPIOLibraryPeriph, h.GPIOLibrary)
		}
		if h.SPIFrequency <= 0 {
			add("Hardware.SPIFrequency must be positive, got %d", h.SPIFrequency)
		}
	default:
		add("Hardware.Platform must be one of %s, %s, %s, got %q", PlatformTUI, PlatformRPI, PlatformNone, h.Platform)
	}

	if len(h.ColorCorrection) != 3 {
		add("Hardware.ColorCorrection must have exactly 3 entries, got %d", len(h.ColorCorrection))
	} else {
		for i, v := range h.ColorCorrection {
			if v < 0 || v > 1.5 {
				add("Hardware.ColorCorrection[%d] must be between 0 and 1.5, got %v", i, v)
			}
		}
	}
	if h.APA102_Brightness > 31 {
		add("Hardware.APA102_Brightness must be between 0 and 31, got %d", h.APA102_Brightness)
	}

	segs := slices.Clone(h.Segments)
	slices.SortFunc(segs, func(a, b SegmentConfig) int { return a.FirstLed - b.FirstLed })
	for i, s := range segs {
		if s.FirstLed < 0 || s.LastLed >= total || s.FirstLed > s.LastLed {
			add("Hardware.Segments: range %d-%d must be between 0 and %d", s.FirstLed, s.LastLed, total-1)
			continue
		}
		if i > 0 && segs[i-1].LastLed >= s.FirstLed {
			add("Hardware.Segments: range %d-%d overlaps %d-%d", s.FirstLed, s.LastLed, segs[i-1].FirstLed, segs[i-1].LastLed)
		}
	}
	return errs
}

func knownEffect(name string) bool {
	return slices.Contains(effect.Names(), effect.Name(name))
}
