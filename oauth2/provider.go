// Package oauth2 implements warden's OAuth2 federation core: one shared
// authorization-code flow parameterized by a small Provider description.
// Adding a provider is a value, not a type — fill in the endpoints, scopes
// and profile shape and the flow does the rest.
package oauth2

import (
	"golang.org/x/oauth2"
)

// Provider describes one OAuth2 provider. The Name doubles as the warden
// provider ID, so keys created by this flow are "name:providerUserId".
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint

	// UsePKCE sends a S256 code challenge with the authorization request
	// and the matching verifier with the code exchange.
	UsePKCE bool

	// ProfileURL is fetched with the access token to obtain the user's
	// profile. Ignored when UseIDToken is set.
	ProfileURL string

	// UseIDToken takes the profile from the id_token claims in the token
	// response instead of a profile endpoint (OIDC providers).
	UseIDToken bool

	// ProfileIDField is the profile field holding the provider's user ID.
	// Defaults to "id" ("sub" is typical for OIDC providers).
	ProfileIDField string
}

func (p Provider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint:     p.Endpoint,
	}
}

func (p Provider) profileIDField() string {
	if p.ProfileIDField == "" {
		return "id"
	}
	return p.ProfileIDField
}
