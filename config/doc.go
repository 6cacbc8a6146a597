// Package config loads service configuration with Viper.
//
// A service reads its config.yml (searched under cmd/<service>/, config/ and
// the working directory), then an optional .env file via godotenv, then the
// process environment. Nested keys are overridden by joining the path with
// underscores: server.port becomes SERVER_PORT.
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.LoadConfig("movies-info-service", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
