//go:build !tinygo

package config

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"labtrack-go/errcode"
)

// Parse decodes YAML over Default, then normalizes and validates. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.parse", Err: err}
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.load", Err: err}
	}
	return Parse(data)
}
