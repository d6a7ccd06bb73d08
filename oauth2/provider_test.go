package oauth2

import (
	"testing"
)

func TestGitHubProvider(t *testing.T) {
	p := GitHub("id", "secret", "https://example.com/cb")
	if p.Name != "github" || p.ProfileIDField != "id" || p.UseIDToken {
		t.Errorf("Unexpected GitHub provider: %+v", p)
	}
	if p.ProfileURL == "" {
		t.Error("GitHub provider has no profile endpoint")
	}
}

func TestGitHubProviderEnvFallback(t *testing.T) {
	t.Setenv("WARDEN_GITHUB_CLIENT_ID", "env-id")
	t.Setenv("WARDEN_GITHUB_CLIENT_SECRET", "env-secret")
	t.Setenv("WARDEN_GITHUB_REDIRECT_URL", "https://env.example.com/cb")

	p := GitHub("", "", "")
	if p.ClientID != "env-id" || p.ClientSecret != "env-secret" || p.RedirectURL != "https://env.example.com/cb" {
		t.Errorf("Env fallback not applied: %+v", p)
	}

	// Explicit arguments win over the environment.
	p = GitHub("explicit", "", "")
	if p.ClientID != "explicit" {
		t.Errorf("ClientID = %q, want explicit value", p.ClientID)
	}
}

func TestGoogleProvider(t *testing.T) {
	p := Google("id", "secret", "https://example.com/cb")
	if p.Name != "google" || !p.UseIDToken || !p.UsePKCE {
		t.Errorf("Unexpected Google provider: %+v", p)
	}
	if p.ProfileIDField != "sub" {
		t.Errorf("ProfileIDField = %q, want sub", p.ProfileIDField)
	}
}

func TestProfileIDFieldDefault(t *testing.T) {
	p := Provider{Name: "custom"}
	if got := p.profileIDField(); got != "id" {
		t.Errorf("profileIDField = %q, want id", got)
	}
}
