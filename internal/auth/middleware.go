package auth

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"example.com/marathon/internal/logging"
)

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	verifier Verifier
}

// NewMiddleware constructs Middleware around verifier.
func NewMiddleware(verifier Verifier) Middleware {
	return Middleware{verifier: verifier}
}

// Wrap rejects requests without a valid bearer token and stores the claims
// on the request context otherwise.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized access - missing token")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), header[len("Bearer "):])
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
			writeMessage(w, http.StatusUnauthorized, "Unauthorized access - invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireEmailMatch allows the request only when the email query parameter
// equals the token's email, ignoring case. It must run after Wrap.
func RequireEmailMatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queryEmail := strings.ToLower(r.URL.Query().Get("email"))
		var tokenEmail string
		if claims, ok := FromContext(r.Context()); ok {
			tokenEmail = strings.ToLower(claims.Email)
		}
		if queryEmail == "" || queryEmail != tokenEmail {
			writeMessage(w, http.StatusForbidden, "Forbidden: email mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
