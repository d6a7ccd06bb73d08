package oauth2

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/wardenauth/warden"
)

// stateLength matches warden's session ID entropy; the state is a one-shot
// CSRF secret for the redirect round-trip.
const stateLength = 40

// RequestError is a non-2xx response from the provider's token or profile
// endpoint. The status and body are preserved so hosts can log provider-side
// outages distinctly from local bugs.
type RequestError struct {
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("provider request failed: status %d: %s", e.StatusCode, e.Body)
}

// Flow drives the authorization-code exchange for one provider against one
// warden engine. It is stateless and safe for concurrent use.
type Flow struct {
	Auth     *warden.Auth
	Provider Provider

	// HTTPClient is used for the token exchange and the profile fetch.
	// Defaults to http.DefaultClient. Warden imposes no timeout of its own;
	// callers bound provider latency with the request context or here.
	HTTPClient *http.Client
}

// NewFlow binds a provider description to an engine.
func NewFlow(auth *warden.Auth, provider Provider) *Flow {
	return &Flow{Auth: auth, Provider: provider}
}

// GetAuthorizationURL builds the provider authorization URL with a fresh
// state and, for PKCE providers, a code verifier whose S256 challenge is
// embedded in the URL. The caller stores state and verifier in short-lived
// cookies for the callback leg.
func (f *Flow) GetAuthorizationURL() (url, state, codeVerifier string) {
	state = warden.GenerateID(stateLength)
	var opts []oauth2.AuthCodeOption
	if f.Provider.UsePKCE {
		codeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(codeVerifier))
	}
	return f.Provider.config().AuthCodeURL(state, opts...), state, codeVerifier
}

// ValidateCallback completes the flow: it checks the echoed state in
// constant time (warden.ErrInvalidState, before any network I/O), exchanges
// the code for tokens, resolves the provider profile, and looks up whether
// this provider identity is already linked to a user.
//
// Authorization codes are single-use by provider contract; a replayed code
// fails the exchange and surfaces as *RequestError.
func (f *Flow) ValidateCallback(ctx context.Context, code, expectedState, receivedState, codeVerifier string) (*ProviderUserAuth, error) {
	if expectedState == "" ||
		subtle.ConstantTimeCompare([]byte(expectedState), []byte(receivedState)) != 1 {
		return nil, warden.ErrInvalidState
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient())
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}
	token, err := f.Provider.config().Exchange(ctx, code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &RequestError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       retrieveErr.Body,
			}
		}
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	profile, err := f.resolveProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	providerUserID, err := profileID(profile, f.Provider.profileIDField())
	if err != nil {
		return nil, err
	}

	result := &ProviderUserAuth{
		auth:           f.Auth,
		providerID:     f.Provider.Name,
		ProviderUserID: providerUserID,
		Profile:        profile,
		Tokens:         token,
	}

	key, err := f.Auth.GetKey(ctx, f.Provider.Name, providerUserID)
	if err != nil {
		return nil, err
	}
	if key != nil {
		user, err := f.Auth.GetUser(ctx, key.UserID)
		if err != nil {
			return nil, err
		}
		result.existingUser = user
	}
	return result, nil
}

// resolveProfile obtains the provider profile, either from id_token claims
// or from the profile endpoint.
func (f *Flow) resolveProfile(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	if f.Provider.UseIDToken {
		return idTokenClaims(token)
	}
	return f.fetchProfile(ctx, token)
}

func (f *Flow) fetchProfile(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Provider.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	token.SetAuthHeader(req)
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: body}
	}
	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, nil
}

// idTokenClaims decodes the id_token claims without signature verification:
// the token arrived over TLS directly from the provider's token endpoint in
// exchange for a confidential-client code, so its provenance is already
// established.
func idTokenClaims(token *oauth2.Token) (map[string]any, error) {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("token response carried no id_token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to decode id_token: %w", err)
	}
	return map[string]any(claims), nil
}

func profileID(profile map[string]any, field string) (string, error) {
	switch v := profile[field].(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("profile field %q is empty", field)
		}
		return v, nil
	case float64:
		// Numeric IDs (GitHub) arrive as JSON numbers.
		return strconv.FormatInt(int64(v), 10), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("profile field %q missing or unsupported", field)
	}
}

func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

// ProviderUserAuth is the outcome of a validated callback: the provider
// identity, its tokens and profile, and whether a local user is already
// linked to it.
type ProviderUserAuth struct {
	auth         *warden.Auth
	providerID   string
	existingUser *warden.User

	ProviderUserID string
	Profile        map[string]any
	Tokens         *oauth2.Token
}

// ExistingUser returns the user already linked to this provider identity,
// or nil for a first-time login.
func (p *ProviderUserAuth) ExistingUser() *warden.User { return p.existingUser }

// CreateUser creates a new user plus the linking key as one atomic write.
// If the key came into existence between callback validation and this call,
// the adapter's uniqueness constraint surfaces warden.ErrDuplicateKey — the
// identity is never silently rebound.
func (p *ProviderUserAuth) CreateUser(ctx context.Context, attributes map[string]any) (*warden.User, error) {
	user := &warden.User{ID: uuid.NewString(), Attributes: attributes}
	return p.auth.CreateUserWithKey(ctx, user, p.providerID, p.ProviderUserID, nil)
}

// CreateKey links this provider identity to an already-authenticated user.
func (p *ProviderUserAuth) CreateKey(ctx context.Context, userID string) (*warden.Key, error) {
	return p.auth.CreateKey(ctx, userID, p.providerID, p.ProviderUserID, nil)
}
