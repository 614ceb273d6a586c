package repair

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads solver tuning constants from a YAML file. Omitted or
// zero-valued fields fall back to the reference defaults; out-of-range
// values are rejected rather than silently clamped.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	if c.Spline.Stiffness < 0 {
		return fmt.Errorf("spline.stiffness must not be negative, got %d", c.Spline.Stiffness)
	}
	if c.Spline.Terms < 0 {
		return fmt.Errorf("spline.terms must not be negative, got %d", c.Spline.Terms)
	}
	if c.Spline.Alpha < 0 {
		return fmt.Errorf("spline.alpha must not be negative, got %g", c.Spline.Alpha)
	}
	if c.Harmonic.Degree < 0 {
		return fmt.Errorf("harmonic.degree must not be negative, got %d", c.Harmonic.Degree)
	}
	return nil
}
