package warden

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the engine configuration read from the environment. Hosts
// that configure warden in code skip this entirely.
type EnvConfig struct {
	SessionLifetime    time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	RenewalWindow      time.Duration `env:"SESSION_RENEWAL_WINDOW"`
	CookieName         string        `env:"SESSION_COOKIE_NAME" envDefault:"warden_session"`
	CSRFAllowedDomains []string      `env:"CSRF_ALLOWED_DOMAINS" envSeparator:","`

	// Dev disables the Secure cookie attribute for plain-HTTP development.
	Dev bool `env:"DEV"`
}

// LoadEnvConfig parses WARDEN_-prefixed environment variables.
func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "WARDEN_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// NewFromEnv builds an engine from the environment.
func NewFromEnv(adapter Adapter) (*Auth, error) {
	cfg, err := LoadEnvConfig()
	if err != nil {
		return nil, err
	}
	a := &Auth{
		Adapter:            adapter,
		SessionLifetime:    cfg.SessionLifetime,
		RenewalWindow:      cfg.RenewalWindow,
		Cookies:            NewCookieController(cfg.CookieName, cfg.Dev),
		CSRFAllowedDomains: cfg.CSRFAllowedDomains,
	}
	return a.EnsureDefaults(), nil
}

// ProviderCredentials is the per-provider OAuth2 client configuration read
// from the environment, e.g. WARDEN_GITHUB_CLIENT_ID for prefix
// "WARDEN_GITHUB_".
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID,notEmpty"`
	ClientSecret string `env:"CLIENT_SECRET,notEmpty"`
	RedirectURL  string `env:"REDIRECT_URL,notEmpty"`
}

// LoadProviderCredentials parses one provider's client credentials under the
// given environment prefix.
func LoadProviderCredentials(prefix string) (*ProviderCredentials, error) {
	var cfg ProviderCredentials
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return nil, fmt.Errorf("failed to parse provider environment %q: %w", prefix, err)
	}
	return &cfg, nil
}
