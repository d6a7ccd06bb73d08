package oauth2

import (
	"os"

	"golang.org/x/oauth2/google"
)

// Google describes the Google OAuth provider. Google is OIDC: the profile
// comes from the id_token claims, the provider user ID is the "sub" claim,
// and the flow uses PKCE. Empty credentials fall back to the WARDEN_GOOGLE_*
// environment variables.
func Google(clientID, clientSecret, redirectURL string) Provider {
	if clientID == "" {
		clientID = os.Getenv("WARDEN_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("WARDEN_GOOGLE_CLIENT_SECRET")
	}
	if redirectURL == "" {
		redirectURL = os.Getenv("WARDEN_GOOGLE_REDIRECT_URL")
	}
	return Provider{
		Name:           "google",
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURL:    redirectURL,
		Scopes:         []string{"openid", "email", "profile"},
		Endpoint:       google.Endpoint,
		UsePKCE:        true,
		UseIDToken:     true,
		ProfileIDField: "sub",
	}
}
