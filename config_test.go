package warden_test

import (
	"testing"
	"time"

	"github.com/wardenauth/warden"
	"github.com/wardenauth/warden/stores/memory"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	cfg, err := warden.LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig failed: %v", err)
	}
	if cfg.SessionLifetime != 24*time.Hour {
		t.Errorf("SessionLifetime = %v, want 24h", cfg.SessionLifetime)
	}
	if cfg.CookieName != warden.DefaultSessionCookieName {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
	if cfg.Dev {
		t.Error("Dev defaulted to true")
	}
}

func TestLoadEnvConfigValues(t *testing.T) {
	t.Setenv("WARDEN_SESSION_LIFETIME", "2h")
	t.Setenv("WARDEN_SESSION_RENEWAL_WINDOW", "30m")
	t.Setenv("WARDEN_SESSION_COOKIE_NAME", "sid")
	t.Setenv("WARDEN_CSRF_ALLOWED_DOMAINS", "app.example.com,*.example.org")
	t.Setenv("WARDEN_DEV", "true")

	cfg, err := warden.LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig failed: %v", err)
	}
	if cfg.SessionLifetime != 2*time.Hour || cfg.RenewalWindow != 30*time.Minute {
		t.Errorf("Durations = %v / %v", cfg.SessionLifetime, cfg.RenewalWindow)
	}
	if cfg.CookieName != "sid" || !cfg.Dev {
		t.Errorf("CookieName = %q, Dev = %v", cfg.CookieName, cfg.Dev)
	}
	if len(cfg.CSRFAllowedDomains) != 2 || cfg.CSRFAllowedDomains[1] != "*.example.org" {
		t.Errorf("CSRFAllowedDomains = %v", cfg.CSRFAllowedDomains)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("WARDEN_SESSION_LIFETIME", "2h")
	t.Setenv("WARDEN_SESSION_COOKIE_NAME", "sid")
	t.Setenv("WARDEN_DEV", "true")

	auth, err := warden.NewFromEnv(memory.NewAdapter())
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}
	if auth.SessionLifetime != 2*time.Hour {
		t.Errorf("SessionLifetime = %v", auth.SessionLifetime)
	}
	// Unset renewal window falls back to half the lifetime.
	if auth.RenewalWindow != time.Hour {
		t.Errorf("RenewalWindow = %v, want 1h", auth.RenewalWindow)
	}
	if auth.Cookies.Name != "sid" || auth.Cookies.Base.Secure {
		t.Errorf("Cookie controller = %+v", auth.Cookies)
	}
}

func TestLoadProviderCredentials(t *testing.T) {
	t.Setenv("WARDEN_GITHUB_CLIENT_ID", "id")
	t.Setenv("WARDEN_GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("WARDEN_GITHUB_REDIRECT_URL", "https://example.com/auth/github/callback/")

	creds, err := warden.LoadProviderCredentials("WARDEN_GITHUB_")
	if err != nil {
		t.Fatalf("LoadProviderCredentials failed: %v", err)
	}
	if creds.ClientID != "id" || creds.ClientSecret != "secret" {
		t.Errorf("Credentials = %+v", creds)
	}
}

func TestLoadProviderCredentialsMissing(t *testing.T) {
	if _, err := warden.LoadProviderCredentials("WARDEN_NOPE_"); err == nil {
		t.Error("Missing provider credentials did not fail")
	}
}
