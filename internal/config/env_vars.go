package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	publicURIVar      = "PUBLIC_URI"
	upstreamURLEnvVar = "UPSTREAM_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Browser Bearer Gateway")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetPublicURI returns the externally visible origin of the gateway (e.g. "https://app.example.com").
// The OAuth2 callback URL is resolved against it.
func (EnvVars) GetPublicURI() string {
	return GetEnv(publicURIVar, "http://localhost:8080")
}

// GetUpstreamURL returns the bearer-protected API that requests are proxied to.
func (EnvVars) GetUpstreamURL() string {
	return GetEnv(upstreamURLEnvVar, "http://localhost:9000")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvBool parses a boolean variable, falling back to defaultValue when unset or invalid.
func GetEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a duration variable such as "30s", falling back to defaultValue.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
