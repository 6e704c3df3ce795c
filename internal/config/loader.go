package config

import (
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	DB         db.Config
	ListenAddr string
	AuthSecret string
	CORSOrigin string
}

// Defaults returns the configuration used when no file or env overrides
// are present.
func Defaults() Config {
	return Config{
		DB:         db.DefaultConfig(),
		ListenAddr: ":8080",
		AuthSecret: "dev-secret",
		CORSOrigin: "http://localhost:3000",
	}
}

// Load reads config.yaml from configPath, with environment overrides
// (CONDUIT_DATABASE_HOST, CONDUIT_SERVER_ADDR, ...).
func Load(configPath string) (Config, error) {
	// Start with default
	cfg := Defaults()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv() // allow environment overrides
	v.SetEnvPrefix("CONDUIT")

	// Optional: Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("auth.secret")
	v.BindEnv("cors.origin")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.ListenAddr = v.GetString("server.addr")
	}
	if v.IsSet("auth.secret") {
		cfg.AuthSecret = v.GetString("auth.secret")
	}
	if v.IsSet("cors.origin") {
		cfg.CORSOrigin = v.GetString("cors.origin")
	}

	return cfg, nil
}
