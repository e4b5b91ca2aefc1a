package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/martinpz/impostor/internal/wordbank"
)

// Config is the full server configuration, loadable from an HCL file.
type Config struct {
	Server     Settings         `hcl:"server,block"`
	Categories []CategoryConfig `hcl:"category,block"`
}

// Settings contains server-level configuration.
type Settings struct {
	Address    string `hcl:"address,optional"`
	Port       int    `hcl:"port,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	BotDelayMs int    `hcl:"bot_delay_ms,optional"`
}

// CategoryConfig defines one word-bank category. Configured categories
// replace the built-in ones entirely.
type CategoryConfig struct {
	Name  string   `hcl:"name,label"`
	Words []string `hcl:"words"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:    "0.0.0.0",
			Port:       3001,
			LogLevel:   "info",
			BotDelayMs: 4000,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults rather than an error.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3001
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.BotDelayMs == 0 {
		config.Server.BotDelayMs = 4000
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.BotDelayMs < 0 {
		return fmt.Errorf("bot delay must not be negative: %d", c.Server.BotDelayMs)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	// Building the bank validates the word lists, so config mistakes
	// surface before the server binds its port.
	if _, err := c.WordBank(); err != nil {
		return err
	}

	return nil
}

// BotDelay returns how long bots "think" before casting their votes.
func (c *Config) BotDelay() time.Duration {
	return time.Duration(c.Server.BotDelayMs) * time.Millisecond
}

// ListenAddress returns the host:port the server binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// WordBank builds the word bank from the configured categories, falling
// back to the built-in lists when none are configured.
func (c *Config) WordBank() (*wordbank.Bank, error) {
	if len(c.Categories) == 0 {
		return wordbank.Default(), nil
	}

	categories := make([]wordbank.Category, len(c.Categories))
	for i, cat := range c.Categories {
		categories[i] = wordbank.Category{Name: cat.Name, Words: cat.Words}
	}
	return wordbank.New(categories)
}
