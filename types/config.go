package types

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment selects the gateway deployment a request targets.
type Environment string

const (
	EnvironmentTest       Environment = "test"
	EnvironmentProduction Environment = "production"
)

// EnvironmentFor maps the request flag onto an Environment.
func EnvironmentFor(isTest bool) Environment {
	if isTest {
		return EnvironmentTest
	}
	return EnvironmentProduction
}

// Endpoints holds the gateway base endpoints. They are data so they can be
// rotated without touching call sites.
type Endpoints struct {
	Test       string `json:"test"`
	Production string `json:"production"`
}

// For returns the endpoint for the given environment.
func (e Endpoints) For(env Environment) string {
	if env == EnvironmentTest {
		return e.Test
	}
	return e.Production
}

// SignatureFormat controls how a signature is embedded in a transport
// payload. The signing string never changes, only its rendering.
type SignatureFormat string

const (
	SignatureRaw    SignatureFormat = "raw"
	SignatureQuoted SignatureFormat = "quoted"
)

// Config contains global configuration for the checkout library
type Config struct {
	Endpoints       Endpoints       `json:"endpoints"`
	ProbeTimeout    time.Duration   `json:"probeTimeout,omitempty"`
	CurrencyCode    string          `json:"currencyCode,omitempty"`
	SignatureFormat SignatureFormat `json:"signatureFormat,omitempty"`
	LogLevel        string          `json:"logLevel,omitempty"`
	EnableMetrics   bool            `json:"enableMetrics,omitempty"`
}

const DefaultProbeTimeout = 3 * time.Second

func DefaultConfig() *Config {
	return &Config{
		Endpoints: Endpoints{
			Test:       "https://tnpg.moamalat.net:6006/js/lightbox.js",
			Production: "https://npg.moamalat.net:6006/js/lightbox.js",
		},
		ProbeTimeout:    DefaultProbeTimeout,
		CurrencyCode:    DefaultCurrencyCode,
		SignatureFormat: SignatureRaw,
		LogLevel:        "info",
	}
}

// LoadConfigFromEnv starts from DefaultConfig and applies CHECKOUT_*
// overrides.
func LoadConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CHECKOUT_TEST_ENDPOINT"); v != "" {
		cfg.Endpoints.Test = v
	}
	if v := os.Getenv("CHECKOUT_PROD_ENDPOINT"); v != "" {
		cfg.Endpoints.Production = v
	}
	if v := os.Getenv("CHECKOUT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("CHECKOUT_CURRENCY"); v != "" {
		cfg.CurrencyCode = v
	}
	if v := os.Getenv("CHECKOUT_SIGNATURE_FORMAT"); v != "" {
		cfg.SignatureFormat = SignatureFormat(strings.ToLower(v))
	}
	if v := os.Getenv("CHECKOUT_PROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, &CheckoutError{
				Code:    ErrInvalidRequest,
				Field:   "CHECKOUT_PROBE_TIMEOUT",
				Message: fmt.Sprintf("invalid duration %q: %v", v, err),
			}
		}
		cfg.ProbeTimeout = d
	}
	if v := os.Getenv("CHECKOUT_ENABLE_METRICS"); v != "" {
		cfg.EnableMetrics = v == "1" || strings.EqualFold(v, "true")
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Endpoints.Test == "" || c.Endpoints.Production == "" {
		return &CheckoutError{Code: ErrInvalidRequest, Field: "endpoints", Message: "both test and production endpoints are required"}
	}
	if c.CurrencyCode != "" && !isCurrencyCode(c.CurrencyCode) {
		return &CheckoutError{Code: ErrInvalidRequest, Field: "currencyCode", Message: fmt.Sprintf("currency %q must be a 3-digit ISO 4217 code", c.CurrencyCode)}
	}
	if c.ProbeTimeout < 0 {
		return &CheckoutError{Code: ErrInvalidRequest, Field: "probeTimeout", Message: "must not be negative"}
	}
	switch c.SignatureFormat {
	case "", SignatureRaw, SignatureQuoted:
	default:
		return &CheckoutError{Code: ErrInvalidRequest, Field: "signatureFormat", Message: fmt.Sprintf("unknown format %q", c.SignatureFormat)}
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
