package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	// HeaderClientID is the header used by clients to identify themselves.
	HeaderClientID = "X-Kenaz-Client-ID"

	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
	tokenQueryParam     = "token"
)

// GetClientID returns the client id set in the request headers.
func GetClientID(r *http.Request) string {
	return r.Header.Get(HeaderClientID)
}

// GetAuthToken returns the bearer token of the request. Browsers can't set
// headers on WebSocket handshakes so the token query parameter is used as a
// fallback.
func GetAuthToken(r *http.Request) string {
	if auth := r.Header.Get(headerAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	return r.URL.Query().Get(tokenQueryParam)
}

func verifyAuthToken(expected string, r *http.Request) error {
	if expected == "" {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(GetAuthToken(r)), []byte(expected)) != 1 {
		return errors.New("invalid auth token").
			WithTag("remote_addr", r.RemoteAddr)
	}
	return nil
}

// VerifyAuthToken returns a WebSocket handshake func that rejects connections
// without the given token. An empty token disables the verification.
func VerifyAuthToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := verifyAuthToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, GetClientID(r)).Warn(err)
			return err
		}
		return nil
	}
}

// VerifyAuthTokenHandler wraps a handler with the token verification.
func VerifyAuthTokenHandler(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyAuthToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, GetClientID(r)).Warn(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}
