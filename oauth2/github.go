package oauth2

import (
	"os"

	"golang.org/x/oauth2/github"
)

// GitHub describes the GitHub OAuth provider. Empty credentials fall back to
// the WARDEN_GITHUB_* environment variables.
func GitHub(clientID, clientSecret, redirectURL string) Provider {
	if clientID == "" {
		clientID = os.Getenv("WARDEN_GITHUB_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("WARDEN_GITHUB_CLIENT_SECRET")
	}
	if redirectURL == "" {
		redirectURL = os.Getenv("WARDEN_GITHUB_REDIRECT_URL")
	}
	return Provider{
		Name:           "github",
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURL:    redirectURL,
		Scopes:         []string{"read:user", "user:email"},
		Endpoint:       github.Endpoint,
		ProfileURL:     "https://api.github.com/user",
		ProfileIDField: "id",
	}
}
