package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds server, upstream and proxy settings loaded from config.json.
// Every zero field gets a default, so an empty file is a working config.
type Config struct {
	Server struct {
		Bind            string `json:"bind"`
		Port            int    `json:"port"`
		ExternalBaseURL string `json:"externalBaseURL"`
	} `json:"server"`
	MUD struct {
		Host              string `json:"host"`
		Port              int    `json:"port"`
		ConnectTimeoutSec int    `json:"connectTimeoutSec"`
		MaxAttempts       int    `json:"maxAttempts"`
		RetryDelaySec     int    `json:"retryDelaySec"`
	} `json:"mud"`
	Proxy struct {
		Enabled  bool   `json:"enabled"`
		Type     string `json:"type"` // "socks5" or "tor"
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"proxy"`
}

var AppConfig *Config

// LoadConfig reads and parses a JSON config file and applies defaults for
// anything left unset. It returns an error if the file is missing or invalid.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	config.applyDefaults()
	AppConfig = &config
	return &config, nil
}

// DefaultConfig returns a config with every default applied, for running
// without a config.json at all.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.MUD.Host == "" {
		c.MUD.Host = "dartmud.com"
	}
	if c.MUD.Port == 0 {
		c.MUD.Port = 2525
	}
	if c.MUD.ConnectTimeoutSec == 0 {
		c.MUD.ConnectTimeoutSec = 10
	}
	if c.MUD.MaxAttempts == 0 {
		c.MUD.MaxAttempts = 3
	}
	if c.MUD.RetryDelaySec == 0 {
		c.MUD.RetryDelaySec = 2
	}
}

// BindAddr returns the listen address, honoring the BIND_ADDR environment
// override used in container deployments.
func (c *Config) BindAddr() string {
	if addr := os.Getenv("BIND_ADDR"); addr != "" {
		return addr
	}
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// UpstreamAddr returns the MUD host:port as dialed.
func (c *Config) UpstreamAddr() string {
	return fmt.Sprintf("%s:%d", c.MUD.Host, c.MUD.Port)
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MUD.ConnectTimeoutSec) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.MUD.RetryDelaySec) * time.Second
}
