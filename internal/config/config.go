// Package config loads and saves the per-user settings file.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/kbdrgb/internal/anim"
	"github.com/coreman2200/kbdrgb/internal/hid"
	"github.com/coreman2200/kbdrgb/internal/zones"
)

// EnvDevice overrides the configured device path when set.
const EnvDevice = "KBDRGB_HID"

const (
	appDirName = "kbdrgb"
	FileName   = "config.yaml"
)

type RippleCfg struct {
	BaseFraction  float64 `yaml:"base_fraction"`
	BoostFraction float64 `yaml:"boost_fraction"`
	DecayStep     int     `yaml:"decay_step"`
	Radius        int     `yaml:"radius"`
	MinGapMS      int     `yaml:"min_gap_ms"`
	MaxGapMS      int     `yaml:"max_gap_ms"`
}

// LastApplied is the settings snapshot used when no state record exists
// yet (first run, or the record was lost).
type LastApplied struct {
	Style     string  `yaml:"style"`
	Color     string  `yaml:"color"` // RRGGBB
	Intensity int     `yaml:"intensity"`
	Speed     float64 `yaml:"speed"`
}

// Settings is the per-user configuration. Zero values fall back to
// defaults at load time, so a partial file is fine.
type Settings struct {
	Device           string   `yaml:"device,omitempty"`
	DeviceCandidates []string `yaml:"device_candidates,omitempty"`
	RetainOnExit     bool     `yaml:"retain_on_exit"`
	ListenAddr       string   `yaml:"listen_addr,omitempty"`

	FrameIntervalMS int `yaml:"frame_interval_ms"`
	ZoneCount       int `yaml:"zone_count"`
	LEDsPerZone     int `yaml:"leds_per_zone"`

	PeriodMaxS float64 `yaml:"period_max_s"`
	PeriodMinS float64 `yaml:"period_min_s"`

	Ripple RippleCfg `yaml:"ripple"`

	Last LastApplied `yaml:"last"`
}

func Default() *Settings {
	return &Settings{
		RetainOnExit:    true,
		FrameIntervalMS: 50,
		ZoneCount:       zones.DefaultCount,
		LEDsPerZone:     zones.DefaultLEDsPerZone,
		PeriodMaxS:      5.0,
		PeriodMinS:      0.5,
		Ripple: RippleCfg{
			BaseFraction:  0.20,
			BoostFraction: 0.05,
			DecayStep:     2,
			Radius:        2,
			MinGapMS:      100,
			MaxGapMS:      500,
		},
		Last: LastApplied{
			Style:     string(anim.Static),
			Color:     "0000ff",
			Intensity: 255,
			Speed:     0.5,
		},
	}
}

// Dir returns the per-user config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the settings file; a missing file yields defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.fillDefaults()
	return s, nil
}

func Save(path string, s *Settings) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (s *Settings) fillDefaults() {
	d := Default()
	if s.FrameIntervalMS <= 0 {
		s.FrameIntervalMS = d.FrameIntervalMS
	}
	if s.ZoneCount <= 0 {
		s.ZoneCount = d.ZoneCount
	}
	if s.LEDsPerZone <= 0 {
		s.LEDsPerZone = d.LEDsPerZone
	}
	if s.PeriodMaxS <= 0 {
		s.PeriodMaxS = d.PeriodMaxS
	}
	if s.PeriodMinS <= 0 {
		s.PeriodMinS = d.PeriodMinS
	}
	if s.Ripple.BaseFraction <= 0 {
		s.Ripple.BaseFraction = d.Ripple.BaseFraction
	}
	if s.Ripple.BoostFraction <= 0 {
		s.Ripple.BoostFraction = d.Ripple.BoostFraction
	}
	if s.Ripple.DecayStep <= 0 {
		s.Ripple.DecayStep = d.Ripple.DecayStep
	}
	if s.Ripple.Radius <= 0 {
		s.Ripple.Radius = d.Ripple.Radius
	}
	if s.Ripple.MinGapMS <= 0 {
		s.Ripple.MinGapMS = d.Ripple.MinGapMS
	}
	if s.Ripple.MaxGapMS < s.Ripple.MinGapMS {
		s.Ripple.MaxGapMS = d.Ripple.MaxGapMS
	}
	if s.Last.Style == "" {
		s.Last = d.Last
	}
}

// ResolveDevice returns the explicit device path: the environment
// override first, then the configured path, else "" (probe).
func (s *Settings) ResolveDevice() string {
	if env := os.Getenv(EnvDevice); env != "" {
		return env
	}
	return s.Device
}

// Candidates returns the probe list for device resolution.
func (s *Settings) Candidates() []string {
	if len(s.DeviceCandidates) > 0 {
		return s.DeviceCandidates
	}
	return hid.DefaultCandidates
}

// Params converts the settings into engine tuning constants.
func (s *Settings) Params() anim.Params {
	return anim.Params{
		FrameInterval:       time.Duration(s.FrameIntervalMS) * time.Millisecond,
		ZoneCount:           s.ZoneCount,
		PeriodMax:           time.Duration(s.PeriodMaxS * float64(time.Second)),
		PeriodMin:           time.Duration(s.PeriodMinS * float64(time.Second)),
		RippleBaseFraction:  s.Ripple.BaseFraction,
		RippleBoostFraction: s.Ripple.BoostFraction,
		RippleDecayStep:     s.Ripple.DecayStep,
		RippleRadius:        s.Ripple.Radius,
		RippleMinGap:        time.Duration(s.Ripple.MinGapMS) * time.Millisecond,
		RippleMaxGap:        time.Duration(s.Ripple.MaxGapMS) * time.Millisecond,
	}
}

// LastSpec builds the fallback animation from the last-applied settings.
func (s *Settings) LastSpec() anim.Spec {
	spec := anim.Spec{
		Style:     anim.Static,
		Color:     anim.Color{B: 255},
		Intensity: 255,
		Speed:     0.5,
		Device:    s.Device,
	}
	if style, err := anim.ParseStyle(s.Last.Style); err == nil {
		spec.Style = style
	}
	if c, err := ParseColor(s.Last.Color); err == nil {
		spec.Color = c
	}
	if s.Last.Intensity >= 0 && s.Last.Intensity <= 255 {
		spec.Intensity = uint8(s.Last.Intensity)
	}
	spec.Speed = s.Last.Speed
	return spec.Normalized()
}

// ParseColor decodes an RRGGBB hex triple, with or without a leading #.
func ParseColor(s string) (anim.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 3 {
		return anim.Color{}, fmt.Errorf("color %q: want RRGGBB", s)
	}
	return anim.Color{R: b[0], G: b[1], B: b[2]}, nil
}
