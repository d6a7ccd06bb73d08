package oauth2

import (
	"errors"
	"net/http"
	"time"
)

const (
	stateCookieName    = "warden_oauth_state"
	verifierCookieName = "warden_oauth_verifier"

	// One authorization round-trip; anything older is a stale flow.
	stateCookieTTL = 10 * time.Minute
)

// HandleUserFunc receives the validated callback result. Typical hosts look
// at ExistingUser, create a user or key as needed, start a warden session
// and redirect.
type HandleUserFunc func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request)

// Handler returns the flow's two-route HTTP surface:
//
//	GET /          — store state (+ verifier) cookies, redirect to provider
//	GET /callback/ — validate the callback, hand the result to handleUser
//
// Mount it under a provider-specific prefix, e.g. with
// (*warden.Handlers).AddProvider.
func (f *Flow) Handler(handleUser HandleUserFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleRedirect)
	mux.HandleFunc("/callback/", f.callbackHandler(handleUser))
	return mux
}

func (f *Flow) handleRedirect(w http.ResponseWriter, r *http.Request) {
	url, state, verifier := f.GetAuthorizationURL()
	secure := f.Auth.EnsureDefaults().Cookies.Base.Secure
	setFlowCookie(w, stateCookieName, state, secure)
	if verifier != "" {
		setFlowCookie(w, verifierCookieName, verifier, secure)
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (f *Flow) callbackHandler(handleUser HandleUserFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateCookie, _ := r.Cookie(stateCookieName)
		expectedState := ""
		if stateCookie != nil {
			expectedState = stateCookie.Value
		}
		verifier := ""
		if verifierCookie, _ := r.Cookie(verifierCookieName); verifierCookie != nil {
			verifier = verifierCookie.Value
		}

		// The state and verifier are one-shot; clear them regardless of
		// how validation goes.
		clearFlowCookie(w, stateCookieName)
		clearFlowCookie(w, verifierCookieName)

		result, err := f.ValidateCallback(r.Context(),
			r.URL.Query().Get("code"),
			expectedState,
			r.URL.Query().Get("state"),
			verifier,
		)
		if err != nil {
			// A provider-side failure is not a forged callback; report it
			// as an upstream error so hosts can tell the two apart.
			var reqErr *RequestError
			if errors.As(err, &reqErr) {
				http.Error(w, "provider request failed", http.StatusBadGateway)
				return
			}
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}
		handleUser(result, w, r)
	}
}

func setFlowCookie(w http.ResponseWriter, name, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearFlowCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
}
