// Package config builds the process configuration from the environment.
//
// The configuration is read once at startup, validated eagerly, and passed
// by reference to every component that needs it. No other package reads the
// process environment directly.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
)

const (
	defaultMySQLPort = 3306
	defaultSSHPort   = 22
	defaultLLMModel  = "gpt-4o"
)

// Database holds the MySQL connection settings. The host/port are as seen
// from the SSH host, since the connection is dialed through the tunnel.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// SSH holds the tunnel endpoint and key-based authentication settings.
type SSH struct {
	Host           string
	Port           int
	User           string
	PrivateKeyPath string
	Passphrase     string // optional, empty for unencrypted keys
}

// LLM holds the credentials for the constraint-name extraction service.
type LLM struct {
	APIKey string
	Model  string
}

// Config is the full, validated process configuration.
type Config struct {
	Database Database
	SSH      SSH
	LLM      LLM
}

// Load reads the configuration from the environment, overlaying a .env file
// if one is present in the working directory. Every missing required value
// is collected and reported in a single ErrKindConfigMissing error so the
// operator can fix them all at once — and before any network activity.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments export the variables.
	_ = godotenv.Load()

	var missing []string
	get := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Database: Database{
			Host:     get("MYSQL_HOST"),
			Port:     getInt("MYSQL_PORT", defaultMySQLPort),
			User:     get("MYSQL_USER"),
			Password: get("MYSQL_PASSWORD"),
			Name:     get("MYSQL_DATABASE"),
		},
		SSH: SSH{
			Host:           get("SSH_HOST"),
			Port:           getInt("SSH_PORT", defaultSSHPort),
			User:           get("SSH_USER"),
			PrivateKeyPath: get("SSH_PRIVATE_KEY_PATH"),
			Passphrase:     os.Getenv("SSH_PASSPHRASE"), // optional
		},
		LLM: LLM{
			APIKey: get("OPENAI_API_KEY"),
			Model:  getDefault("OPENAI_MODEL", defaultLLMModel),
		},
	}

	if len(missing) > 0 {
		return nil, errs.Newf(errs.ErrKindConfigMissing,
			"missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
