package config

import (
	"os"

	"github.com/Veraticus/plaid-connect/internal/plaid"
	"github.com/spf13/viper"
)

// Defaults used when neither the config file nor the environment set a value.
const (
	DefaultEnvironment  = "tartan"
	DefaultDatabasePath = "$HOME/.local/share/plaidctl/plaidctl.db"
)

// LoadPlaidConfig loads Plaid client configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or PLAIDCTL_ env vars)
// 2. Direct environment variables (PLAID_*)
// 3. Default values
func LoadPlaidConfig() (*plaid.Config, error) {
	config := plaid.Config{}

	// Load from Viper first
	if v := viper.GetString("plaid.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("plaid.secret"); v != "" {
		config.Secret = v
	}
	if v := viper.GetString("plaid.environment"); v != "" {
		config.Environment = v
	}
	if v := viper.GetString("plaid.base_url"); v != "" {
		config.BaseURL = v
	}
	if v := viper.GetDuration("plaid.timeout"); v > 0 {
		config.Timeout = v
	}

	// Override with direct environment variables if not set
	if config.ClientID == "" {
		config.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("PLAID_SECRET")
	}
	if config.Environment == "" {
		config.Environment = os.Getenv("PLAID_ENV")
	}
	if config.Environment == "" && config.BaseURL == "" {
		config.Environment = DefaultEnvironment
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DatabasePath returns the expanded location of the local item store.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}
