package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits are the per-context resource bounds. Zero fields fall back to
// the package defaults, so a partially filled YAML file is fine.
type Limits struct {
	// ValstackInit is the initial guaranteed value stack reserve.
	ValstackInit int `yaml:"valstack_init,omitempty"`

	// ValstackLimit is the hard cap on value stack growth.
	ValstackLimit int `yaml:"valstack_limit,omitempty"`

	// RecLimit is the maximum number of nested activations.
	RecLimit int `yaml:"reclimit,omitempty"`
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		ValstackInit:  InitialValstackSize,
		ValstackLimit: DefaultValstackLimit,
		RecLimit:      DefaultRecLimit,
	}
}

// Normalize fills zero fields with defaults and validates the rest.
func (l Limits) Normalize() (Limits, error) {
	def := DefaultLimits()
	if l.ValstackInit == 0 {
		l.ValstackInit = def.ValstackInit
	}
	if l.ValstackLimit == 0 {
		l.ValstackLimit = def.ValstackLimit
	}
	if l.RecLimit == 0 {
		l.RecLimit = def.RecLimit
	}
	if l.ValstackInit < 0 || l.ValstackLimit < 0 || l.RecLimit < 0 {
		return Limits{}, fmt.Errorf("limits must be non-negative: %+v", l)
	}
	if l.ValstackInit > l.ValstackLimit {
		return Limits{}, fmt.Errorf("valstack_init %d exceeds valstack_limit %d", l.ValstackInit, l.ValstackLimit)
	}
	return l, nil
}

// LoadLimits reads a limits YAML file (typically "corvid.yaml").
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseLimits(data)
}

// ParseLimits parses limits from YAML bytes.
func ParseLimits(data []byte) (Limits, error) {
	var l Limits
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Limits{}, fmt.Errorf("parsing limits: %w", err)
	}
	return l.Normalize()
}
