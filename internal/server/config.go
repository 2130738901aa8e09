package server

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"TimeBounce/internal/sim"
)

// simFileConfig mirrors configs/sim.yaml. Every field is optional; absent
// fields keep their defaults, so a config file only states what it changes.
type simFileConfig struct {
	Frame             *string  `yaml:"frame"` // "physics" (y-up) or "screen" (y-down)
	Gravity           *float64 `yaml:"gravity"`
	AirResistance     *float64 `yaml:"air_resistance"`
	BounceDamping     *float64 `yaml:"bounce_damping"`
	MinBounceSpeed    *float64 `yaml:"min_bounce_speed"`
	SubstepHz         *float64 `yaml:"substep_hz"`
	StartHeight       *float64 `yaml:"start_height"`
	Width             *float64 `yaml:"width"`
	HistorySeconds    *float64 `yaml:"history_seconds"`
	ViewportPadding   *float64 `yaml:"viewport_padding"`
	MinViewportHeight *float64 `yaml:"min_viewport_height"`
	ViewportDepth     *float64 `yaml:"viewport_depth"`
}

// SimOverrides carries optional command-line overrides applied on top of the
// config file.
type SimOverrides struct {
	Gravity        *float64
	AirResistance  *float64
	BounceDamping  *float64
	SubstepHz      *float64
	StartHeight    *float64
	HistorySeconds *float64
}

func (o SimOverrides) apply(base sim.Config) sim.Config {
	if o.Gravity != nil {
		base.Gravity = *o.Gravity
	}
	if o.AirResistance != nil {
		base.AirResistance = *o.AirResistance
	}
	if o.BounceDamping != nil {
		base.BounceDamping = *o.BounceDamping
	}
	if o.SubstepHz != nil && *o.SubstepHz > 0 {
		base.SubstepDt = 1 / *o.SubstepHz
	}
	if o.StartHeight != nil {
		base.StartHeight = *o.StartHeight
	}
	if o.HistorySeconds != nil {
		base.HistoryKeepS = *o.HistorySeconds
	}
	return base
}

func mergeSimConfig(base sim.Config, fc *simFileConfig) sim.Config {
	if fc == nil {
		return base
	}
	if fc.Frame != nil && *fc.Frame == "screen" {
		base.Frame = sim.FrameYDown
	}
	if fc.Gravity != nil {
		base.Gravity = *fc.Gravity
	}
	if fc.AirResistance != nil {
		base.AirResistance = *fc.AirResistance
	}
	if fc.BounceDamping != nil {
		base.BounceDamping = *fc.BounceDamping
	}
	if fc.MinBounceSpeed != nil {
		base.MinBounceSpeed = *fc.MinBounceSpeed
	}
	if fc.SubstepHz != nil && *fc.SubstepHz > 0 {
		base.SubstepDt = 1 / *fc.SubstepHz
	}
	if fc.StartHeight != nil {
		base.StartHeight = *fc.StartHeight
	}
	if fc.Width != nil {
		base.Width = *fc.Width
	}
	if fc.HistorySeconds != nil {
		base.HistoryKeepS = *fc.HistorySeconds
	}
	if fc.ViewportPadding != nil {
		base.ViewportPadding = *fc.ViewportPadding
	}
	if fc.MinViewportHeight != nil {
		base.MinViewportHeight = *fc.MinViewportHeight
	}
	if fc.ViewportDepth != nil {
		base.ViewportDepth = *fc.ViewportDepth
	}
	return base
}

// loadSimConfigFromFile merges the YAML file at path over base. A missing
// file is not an error; the defaults simply stand.
func loadSimConfigFromFile(path string, base sim.Config) (sim.Config, error) {
	if path == "" {
		return base, nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("read sim config %q: %w", cleanPath, err)
	}
	var fc simFileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("parse sim config %q: %w", cleanPath, err)
	}
	return mergeSimConfig(base, &fc), nil
}
