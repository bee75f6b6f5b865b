// Package config handles loading and validating Nexus Grid configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with NEXUSGRID_* environment variables
//   - Validation of required fields (all problems reported at once)
//   - Default value handling, including the signal control timings
//
// Security Considerations:
//   - Broker passwords, InfluxDB tokens and the JWT secret should be set via
//     environment variables rather than committed to the YAML file
//   - The JWT secret is mandatory whenever the API enforces authentication
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Control.TickInterval)
package config
