// Package config loads the server configuration from a YAML file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	DisableChecksum bool   `yaml:"disable_checksum"`
}

type HTTPConfig struct {
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir"`
}

// SeedConfig controls first-run creation of a default board.
type SeedConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BoardName string `yaml:"board_name"`
}

type Config struct {
	HTTP HTTPConfig `yaml:"http"`
	S3   S3Config   `yaml:"s3"`
	Seed SeedConfig `yaml:"seed"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.HTTP.StaticDir == "" {
		c.HTTP.StaticDir = "static"
	}
	if c.Seed.BoardName == "" {
		c.Seed.BoardName = "Default Board"
	}
}
