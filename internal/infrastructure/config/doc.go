// Package config handles loading and validating GeoControl configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GEOCONTROL_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The JWT secret and the seeded admin password should come from the environment
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
package config
