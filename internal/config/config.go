// Package config loads InfluxDB client credentials from .influx.toml files.
//
// Expected format:
//
//	url = "http://localhost:8086"
//	token = "<auth token>"
//	org = "my-org"
//	timeout = 6000                # optional (ms)
//	connection_pool_maxsize = 25  # optional
//	auth_basic = false            # optional
//
// Unrecognized keys are ignored.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultTimeoutMS is applied when the config file does not set a timeout.
const DefaultTimeoutMS = 60000

// InfluxConfig holds the connection settings for one InfluxDB v2 instance.
type InfluxConfig struct {
	URL   string
	Org   string
	Token string
	// Optional client tuning
	TimeoutMS             int
	ConnectionPoolMaxSize int
	AuthBasic             bool
}

// LoadInfluxConfig reads an .influx.toml file. Missing url, org or token is a
// configuration error.
func LoadInfluxConfig(path string) (*InfluxConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("timeout", DefaultTimeoutMS)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &InfluxConfig{
		URL:                   v.GetString("url"),
		Org:                   v.GetString("org"),
		Token:                 v.GetString("token"),
		TimeoutMS:             v.GetInt("timeout"),
		ConnectionPoolMaxSize: v.GetInt("connection_pool_maxsize"),
		AuthBasic:             v.GetBool("auth_basic"),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("config %s: url is required", path)
	}
	if cfg.Org == "" {
		return nil, fmt.Errorf("config %s: org is required", path)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("config %s: token is required", path)
	}
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = DefaultTimeoutMS
	}

	return cfg, nil
}

// Redacted returns a copy safe for logging. The token never appears in logs.
func (c *InfluxConfig) Redacted() InfluxConfig {
	out := *c
	out.Token = "[redacted]"
	return out
}
