package dashboard

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const authRealm = `Basic realm="Secured Admin Dashboard"`

// BasicAuth guards the admin surface with HTTP Basic credentials. Comparison
// runs over fixed-length digests so neither username nor password length
// leaks through timing.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(a.Password) == "" {
			http.Error(w, "admin access is not configured", http.StatusInternalServerError)
			return
		}
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		expectedUser := a.Username
		if strings.TrimSpace(expectedUser) == "" {
			expectedUser = "admin"
		}
		if !timingSafeEqual(username, expectedUser) || !timingSafeEqual(password, a.Password) {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timingSafeEqual(got string, want string) bool {
	gotSum := sha256.Sum256([]byte(got))
	wantSum := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(gotSum[:], wantSum[:]) == 1
}
