package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the forcebridge server.
type Config struct {
	Host       string
	Port       int
	Version    string
	Salesforce SalesforceConfig
	Telemetry  TelemetryConfig
}

type SalesforceConfig struct {
	ClientID       string
	Username       string
	LoginURL       string
	PrivateKey     string // PEM, inline
	PrivateKeyFile string // PEM, path; takes precedence over PrivateKey
	APIVersion     string
	StrictIDCheck  bool
	// DNSServer, when set (host:port), routes hostname resolution for
	// outbound Salesforce calls through that server instead of the
	// system resolver. Needed on hosts with broken default DNS.
	DNSServer string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Host:    envStr("HOST", "0.0.0.0"),
		Port:    envInt("PORT", 8000),
		Version: envStr("FORCEBRIDGE_VERSION", "1.0.0"),
		Salesforce: SalesforceConfig{
			ClientID:       envStr("SF_CLIENT_ID", ""),
			Username:       envStr("SF_USERNAME", ""),
			LoginURL:       envStr("SF_LOGIN_URL", "https://login.salesforce.com"),
			PrivateKey:     envStr("SF_PRIVATE_KEY", ""),
			PrivateKeyFile: envStr("SF_PRIVATE_KEY_FILE", ""),
			APIVersion:     envStr("SF_API_VERSION", "v59.0"),
			StrictIDCheck:  envBool("SF_STRICT_ID_CHECK", true),
			DNSServer:      envStr("SF_DNS_SERVER", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "forcebridge"),
		},
	}
}

// PrivateKeyPEM returns the signing key material, preferring the file
// variant when both are configured.
func (c SalesforceConfig) PrivateKeyPEM() ([]byte, error) {
	if c.PrivateKeyFile != "" {
		pem, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key file: %w", err)
		}
		return pem, nil
	}
	if c.PrivateKey == "" {
		return nil, fmt.Errorf("no private key configured (SF_PRIVATE_KEY or SF_PRIVATE_KEY_FILE)")
	}
	return []byte(c.PrivateKey), nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
