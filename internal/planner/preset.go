package planner

import (
	"fmt"
	"strings"
)

// Preset is an x264 speed/quality preset.
type Preset string

const (
	PresetUltrafast Preset = "ultrafast"
	PresetSuperfast Preset = "superfast"
	PresetVeryfast  Preset = "veryfast"
	PresetFaster    Preset = "faster"
	PresetFast      Preset = "fast"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
	PresetSlower    Preset = "slower"
	PresetVeryslow  Preset = "veryslow"
)

// Presets lists the accepted presets from fastest to slowest.
var Presets = []Preset{
	PresetUltrafast, PresetSuperfast, PresetVeryfast, PresetFaster,
	PresetFast, PresetMedium, PresetSlow, PresetSlower, PresetVeryslow,
}

// ParsePreset validates s (case-insensitive). Empty selects medium.
func ParsePreset(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PresetMedium, nil
	}
	for _, p := range Presets {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid video preset %q (use one of %s)", s, presetList())
}

func presetList() string {
	names := make([]string, len(Presets))
	for i, p := range Presets {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
