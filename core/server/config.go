package server

import "time"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// ReadTimeoutSeconds bounds reading a request. Sync runs are not bounded by it.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
}

// ReadTimeout returns the request read timeout, defaulting to 30 seconds.
func (c Config) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// IsProtected reports whether requests must carry the API key.
func (c Config) IsProtected() bool {
	return c.ApiKey != ""
}
