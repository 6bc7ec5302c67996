// Package config defines the application configuration structure and loads
// it from environment variables and an optional config file. Environment
// variables use the HMC_ prefix and take precedence over file values.
package config
