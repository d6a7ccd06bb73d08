package oauth2

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func flowCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandlerRedirect(t *testing.T) {
	p := newFakeProvider(t)
	flow := newTestFlow(t, p.provider(true))
	handler := flow.Handler(func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request) {
		t.Error("handleUser called on the redirect leg")
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("Status = %d, want 302", w.Code)
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location unparseable: %v", err)
	}

	state := flowCookie(w, stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("Redirect did not set the state cookie")
	}
	if !state.HttpOnly || state.MaxAge != int(stateCookieTTL.Seconds()) {
		t.Errorf("State cookie attributes off: %+v", state)
	}
	if location.Query().Get("state") != state.Value {
		t.Errorf("URL state %q does not match cookie %q", location.Query().Get("state"), state.Value)
	}

	verifier := flowCookie(w, verifierCookieName)
	if verifier == nil || verifier.Value == "" {
		t.Error("PKCE redirect did not set the verifier cookie")
	}
}

func TestHandlerCallback(t *testing.T) {
	p := newFakeProvider(t)
	flow := newTestFlow(t, p.provider(false))

	var handled *ProviderUserAuth
	handler := flow.Handler(func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request) {
		handled = result
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/callback/?code=auth-code&state=state-1", nil)
	r.AddCookie(&http.Cookie{Name: stateCookieName, Value: "state-1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", w.Code, w.Body.String())
	}
	if handled == nil || handled.ProviderUserID != "981234" {
		t.Fatalf("handleUser got %+v", handled)
	}

	// One-shot cookies are cleared on the way out.
	state := flowCookie(w, stateCookieName)
	if state == nil || state.Value != "" || state.MaxAge != -1 {
		t.Errorf("State cookie not cleared: %+v", state)
	}
}

func TestHandlerCallbackStateMismatch(t *testing.T) {
	p := newFakeProvider(t)
	flow := newTestFlow(t, p.provider(false))

	handler := flow.Handler(func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request) {
		t.Error("handleUser called despite state mismatch")
	})

	r := httptest.NewRequest(http.MethodGet, "/callback/?code=auth-code&state=forged", nil)
	r.AddCookie(&http.Cookie{Name: stateCookieName, Value: "state-1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}

func TestHandlerCallbackProviderOutage(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusInternalServerError
	flow := newTestFlow(t, p.provider(false))

	handler := flow.Handler(func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request) {
		t.Error("handleUser called despite the provider failing")
	})

	r := httptest.NewRequest(http.MethodGet, "/callback/?code=auth-code&state=state-1", nil)
	r.AddCookie(&http.Cookie{Name: stateCookieName, Value: "state-1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	// Upstream failure, not a forged callback.
	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", w.Code)
	}
}

func TestHandlerCallbackMissingStateCookie(t *testing.T) {
	p := newFakeProvider(t)
	flow := newTestFlow(t, p.provider(false))

	handler := flow.Handler(func(result *ProviderUserAuth, w http.ResponseWriter, r *http.Request) {
		t.Error("handleUser called without a stored state")
	})

	r := httptest.NewRequest(http.MethodGet, "/callback/?code=auth-code&state=state-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}
