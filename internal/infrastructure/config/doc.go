// Package config provides configuration management for Homelink.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and validation. The loading order is:
//
//  1. Hardcoded defaults
//  2. YAML file values
//  3. HOMELINK_* environment variables
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Host, cfg.Server.Port)
//
// Credentials (auth.username / auth.password, MQTT auth, InfluxDB token)
// should be supplied via environment variables rather than committed to the
// config file.
package config
