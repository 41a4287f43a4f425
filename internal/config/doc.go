// Package config loads the client configuration from environment variables.
package config
