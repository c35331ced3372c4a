package httpx

import (
	"net/http"
	"strings"

	"github.com/ecofinds/ecofinds-orders/internal/identity"
)

type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Authenticator resolves the session credential into a user id on the request context.
type Authenticator struct {
	Verifier   TokenVerifier
	CookieName string
}

// credential prefers the session cookie and falls back to a bearer header.
func (a *Authenticator) credential(r *http.Request) string {
	if c, err := r.Cookie(a.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(tok)
	}
	return ""
}

func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := a.credential(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := a.Verifier.Verify(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
	})
}
