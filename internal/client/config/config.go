// Package config loads settings for the securelink owner CLI.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the owner CLI.
type Config struct {
	// ServerEndpointAddr is host:port of the server's gRPC endpoint.
	ServerEndpointAddr string
	// AccessToken is the owner JWT. It can also be entered with "login".
	AccessToken string
	// Timeout bounds each remote call.
	Timeout time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 30 * time.Second
}

// LoadConfig applies defaults, then the environment (.env included), then
// command-line flags.
func LoadConfig() *Config {
	return load(os.Args[1:], ".env")
}

func load(args []string, envFile string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, envFile)
	parseFlags(cfg, args)
	return cfg
}

func parseEnv(cfg *Config, envFile string) {
	// a missing .env is normal
	_ = godotenv.Load(envFile)

	if v, ok := os.LookupEnv("SECURELINK_SERVER"); ok && v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := os.LookupEnv("SECURELINK_ACCESS_TOKEN"); ok && v != "" {
		cfg.AccessToken = v
	}
}
