// Package config loads the server settings and per-site config files.
//
// A config directory holds one settings.yml plus one <domain>.yml per site;
// site files are applied in lexical order, which is also the dispatch order
// of the resulting chains.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const settingsFile = "settings.yml"

// Settings is the process-wide configuration.
type Settings struct {
	Server  Server  `yaml:"server"`
	Redis   Redis   `yaml:"redis"`
	Log     Log     `yaml:"log"`
	Tracing Tracing `yaml:"tracing"`
}

type Server struct {
	Listen   string   `yaml:"listen"`
	Timeouts Timeouts `yaml:"timeouts"`
}

type Timeouts struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
	Idle  time.Duration `yaml:"idle"`
}

type Redis struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

// SiteFile is one <domain>.yml.
type SiteFile struct {
	Domain       string         `yaml:"domain"`
	MultiSite    bool           `yaml:"multi_site"`
	Production   bool           `yaml:"production"`
	APIBasePath  string         `yaml:"api_base_path"`
	SitesBaseDir string         `yaml:"sites_base_dir"`
	SharedData   map[string]any `yaml:"shared_data"`
	RateLimit    *RateLimit     `yaml:"rate_limit"`
}

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoadSettings reads settings.yml.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	return &cfg, nil
}

// LoadSites reads every *.yml site file in dir except settings.yml, in
// lexical order.
func LoadSites(dir string) ([]SiteFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") || e.Name() == settingsFile {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sites := make([]SiteFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		var sf SiteFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if sf.Domain == "" {
			return nil, fmt.Errorf("domain missing in %s", name)
		}
		sites = append(sites, sf)
	}
	return sites, nil
}
