package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "HOMESTOCK"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "homestock.db"
	defaultLogLevel        = "info"
	defaultServerURL       = "http://127.0.0.1:8080"
	defaultTokenTTLMinutes = 720
)

// defaultCategories is the household category list shipped with the app.
// Deployments override it via HOMESTOCK_INVENTORY_CATEGORIES or a config file.
var defaultCategories = []string{
	"醬 sauce",
	"清潔產品 cleaning product",
	"罐頭 canned",
	"麵/飯 noodles/rice",
	"醋或水 vinegar/water",
	"袋 bags",
}

// ServerConfig captures runtime configuration for the store API server.
type ServerConfig struct {
	HTTPAddress   string
	DatabasePath  string
	SigningSecret string
	TokenTTL      time.Duration
	LogLevel      string
}

// ClientConfig captures runtime configuration for the terminal client.
type ClientConfig struct {
	ServerURL     string
	AdminPasscode string
	Categories    []string
	LogLevel      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("server.url", defaultServerURL)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("inventory.categories", defaultCategories)
}

// LoadServer parses server runtime configuration from viper.
func LoadServer(configViper *viper.Viper) (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		LogLevel:      configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return ServerConfig{}, err
	}

	return cfg, nil
}

// LoadClient parses terminal-client runtime configuration from viper.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		ServerURL:     configViper.GetString("server.url"),
		AdminPasscode: configViper.GetString("admin.passcode"),
		Categories:    configViper.GetStringSlice("inventory.categories"),
		LogLevel:      configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, err
	}

	return cfg, nil
}

func (c ServerConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	return nil
}

func (c ClientConfig) validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server.url is required")
	}
	if strings.TrimSpace(c.AdminPasscode) == "" {
		return fmt.Errorf("admin.passcode is required")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("inventory.categories must not be empty")
	}
	return nil
}
