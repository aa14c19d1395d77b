// Package config provides the JSON configuration of the detector.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"swatch-inspector/internal/pattern"
	"swatch-inspector/pkg/colorutil"
)

const (
	appDir     = "swatch-inspector"
	configFile = "config.json"
)

// Config holds detection settings. Fields may be loaded from a JSON file and
// overridden by command-line flags.
type Config struct {
	WorkingSpace string `json:"working_space"`
	// Tolerances per channel; nil means the working space default.
	Tolerances   *[3]int `json:"tolerances,omitempty"`
	Highlight    string  `json:"highlight"`
	KernelSize   int     `json:"kernel_size"`
	SampleRadius int     `json:"sample_radius"`
	UseFallback  bool    `json:"use_fallback"`

	// Output locations used by the headless CLI when no flag is given.
	OutputPath string `json:"output_path,omitempty"`
	MaskPath   string `json:"mask_path,omitempty"`

	path string
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		WorkingSpace: pattern.SpaceHSV.String(),
		Highlight:    colorutil.Hex(colorutil.Blue),
		KernelSize:   pattern.DefaultKernelSize,
		SampleRadius: pattern.SampleRadius,
		UseFallback:  true,
	}
}

// DefaultPath returns <UserConfigDir>/swatch-inspector/config.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir, configFile)
}

// Load reads the configuration at path. A missing file yields the defaults;
// invalid JSON yields the defaults together with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		fresh := DefaultConfig()
		fresh.path = path
		return fresh, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Validate clamps and normalises values to safe ranges. It only fails for an
// unparsable highlight colour.
func (c *Config) Validate() error {
	space, err := pattern.ParseWorkingSpace(c.WorkingSpace)
	if err != nil {
		space = pattern.SpaceHSV
	}
	c.WorkingSpace = space.String()

	if c.Tolerances != nil {
		defaults := pattern.DefaultTolerances(space)
		for i, t := range c.Tolerances {
			if t < 0 {
				c.Tolerances[i] = defaults[i]
			}
		}
	}
	if c.KernelSize < 1 {
		c.KernelSize = pattern.DefaultKernelSize
	}
	if c.KernelSize%2 == 0 {
		c.KernelSize++
	}
	if c.SampleRadius < 0 {
		c.SampleRadius = pattern.SampleRadius
	}
	if c.Highlight == "" {
		c.Highlight = colorutil.Hex(colorutil.Blue)
	}
	if _, err := colorutil.ParseHex(c.Highlight); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return nil
}

// Params converts the configuration into a detection policy. Call Validate
// first.
func (c *Config) Params() (pattern.Params, error) {
	space, err := pattern.ParseWorkingSpace(c.WorkingSpace)
	if err != nil {
		return pattern.Params{}, err
	}
	highlight, err := colorutil.ParseHex(c.Highlight)
	if err != nil {
		return pattern.Params{}, fmt.Errorf("highlight: %w", err)
	}

	p := pattern.DefaultParams(space).WithHighlight(highlight)
	if c.Tolerances != nil {
		p = p.WithTolerances(pattern.Tolerances(*c.Tolerances))
	}
	p.KernelSize = c.KernelSize
	p.SampleRadius = c.SampleRadius
	p.UseFallback = c.UseFallback
	return p, nil
}
