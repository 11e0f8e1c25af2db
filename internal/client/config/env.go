package config

import (
	"os"

	"github.com/joho/godotenv"
)

// TokenEnv names the environment variable holding the access token.
const TokenEnv = "CLOUDDRIVE_TOKEN"

// parseEnv reads the access token from the environment, loading a .env file
// from the working directory first when present.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv(TokenEnv); ok && v != "" {
		cfg.AccessToken = v
	}
}
