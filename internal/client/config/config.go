// Package config holds settings for the cloud drive command-line client.
package config

import "time"

// Config holds runtime settings for the drive CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - AccessToken: bearer token sent as access_token metadata. When empty
//     the CLI prompts for it.
//   - RequestTimeout: upper bound for one command, uploads included.
//   - PartConcurrency: how many parts are uploaded in parallel.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	RequestTimeout     time.Duration
	PartConcurrency    int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Minute
	c.PartConcurrency = 4
}

// LoadConfig constructs a Config, applies defaults, then overlays the
// CLOUDDRIVE_TOKEN environment variable, JSON (if present) and command-line
// flags (if present). Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
