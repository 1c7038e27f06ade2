// Package config provides centralized configuration management for issuepulse.
// It loads configuration from multiple sources, validates it, and resolves
// the file system paths the application works with.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ISSUEPULSE_<SECTION>_<FIELD>:
//
//	ISSUEPULSE_SERVER_PORT=8080
//	ISSUEPULSE_LOGGING_LEVEL=debug
//	ISSUEPULSE_DASHBOARD_SELECT_ALL_DEFAULT=false
//	ISSUEPULSE_DASHBOARD_SESSION_TTL=30m
//	ISSUEPULSE_PATHS_DEFAULT_DATASET=sample.csv
//
// ISSUEPULSE_CONFIG points at an explicit YAML file; otherwise config.yaml
// and configs/config.yaml are tried.
//
// # Path Management
//
// Paths resolves the data, logs and default dataset locations:
//
//	paths, err := cfg.ResolvePaths()
//	if paths.HasDefaultDataset() {
//	    // offer the bundled dataset
//	}
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// config.Default() returns a complete configuration that does not depend on
// the environment or files.
package config
