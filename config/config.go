package config

import (
	"fmt"
	"os"

	"github.com/pbudner/argosbind/encoding"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Logger struct {
	Level string `yaml:"level"`
}

type Database struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in-memory"`
}

type Config struct {
	Listener string   `yaml:"listener"`
	BaseURL  string   `yaml:"base-url"`
	Codec    string   `yaml:"codec"`
	Logger   Logger   `yaml:"logger"`
	Database Database `yaml:"database"`
}

var defaultConfig = Config{
	Listener: "localhost:4711",
	Codec:    "json",
	Logger: Logger{
		Level: "info",
	},
	Database: Database{
		Path: "data/argosbind",
	},
}

// NewConfig reads and validates the YAML file at path
func NewConfig(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return NewConfigFromStr(raw)
}

// NewConfigFromStr decodes a YAML document on top of the defaults
func NewConfigFromStr(raw []byte) (*Config, error) {
	config := defaultConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the codec and log level are known
func (c *Config) Validate() error {
	if _, err := encoding.Lookup(c.Codec); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database path must be set unless in-memory is enabled")
	}
	return nil
}

func (c *Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Logger.Level)
}

// ValidateConfigPath just makes sure, that the path provided is a file,
// that can be read
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a normal file", path)
	}
	return nil
}
