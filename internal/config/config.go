// Package config loads interpreter settings from an spl.yaml file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// DefaultFile is the config file name looked up next to the script and in
// the working directory.
const DefaultFile = "spl.yaml"

type Config struct {
	// ImportPaths are directories searched for import targets, after the
	// importing file's own directory.
	ImportPaths []string `yaml:"import_paths"`
}

// Load reads and decodes one config file. A missing file is not an error;
// it yields the zero config.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Discover loads the config governing a script: an explicit path wins and
// must exist, otherwise spl.yaml beside the script, otherwise spl.yaml in
// the working directory.
func Discover(explicit, script string) (*Config, error) {
	if explicit != "" {
		return load(explicit)
	}
	if script != "" {
		beside := filepath.Join(filepath.Dir(script), DefaultFile)
		cfg, err := load(beside)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return Load(DefaultFile)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Relative import paths are anchored at the config file, not the
	// process working directory.
	base := filepath.Dir(path)
	for i, p := range cfg.ImportPaths {
		if !filepath.IsAbs(p) {
			cfg.ImportPaths[i] = filepath.Join(base, p)
		}
	}
	return &cfg, nil
}
