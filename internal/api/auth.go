package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/SentientSim/internal/config"
)

// authConfig holds the single set of monitoring credentials.
type authConfig struct {
	user    string
	pass    string
	enabled bool
}

var auth *authConfig

// InitAuth loads SENTIENT_API_USER and SENTIENT_API_PASS (or their *_FILE
// variants). If either is unset, authentication is disabled.
func InitAuth() error {
	user, pass, ok, err := config.ResolveSecretPair(config.SecretAPIUser, config.SecretAPIPass)
	if err != nil {
		return fmt.Errorf("failed to resolve API credentials: %w", err)
	}
	auth = &authConfig{user: user, pass: pass, enabled: ok}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

func authenticated(r *http.Request) bool {
	if !IsAuthEnabled() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return secureCompare(user, auth.user) && secureCompare(pass, auth.pass)
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Protect wraps a handler with basic auth when credentials are configured.
func Protect(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Sentient Sim"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}
}
