// Package config handles loading and validating Gray Logic Grow configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GROWLOGIC_*)
//   - Validation of required fields
//   - Default value handling
//
// Configuration is built once at startup and passed explicitly to the
// components that need it. Nothing in this package holds mutable global state.
//
// Security Considerations:
//   - Broker passwords and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Transport.Address)
package config
