// Package config handles loading and validating the shade worker
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file into the environment
//   - Overriding with SHADES_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker credentials should be set via environment variables
//   - TLS key files should have restricted permissions (0600)
//
// Usage:
//
//	_ = config.LoadEnvFile(".env")
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loc, _ := cfg.Location()
package config
