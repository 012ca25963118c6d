// Package config handles loading and validating healthbridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sink tokens and MQTT passwords should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// The backfill engine and daemon never read the environment or command line
// themselves; they receive values derived from a validated Config.
//
// Usage:
//
//	cfg, err := config.LoadOrDefault("configs/healthbridge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.DeviceAddress())
package config
