// Package config loads bridge configuration from environment variables.
//
// All settings are read once at startup and handed to components as an
// explicit *Config; no package reads the environment at request time.
package config
