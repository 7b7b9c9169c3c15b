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
	ErrTypeUnauthorized = "unauthorized"

	// ClientIDHeader identifies the client in logs.
	ClientIDHeader = "X-Client-Id"
)

// VerifyAuthToken returns a websocket handshake that rejects the connections
// that do not carry the given bearer token. An empty token accepts every
// connection.
func VerifyAuthToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := verifyAuthToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(ClientIDHeader)).Warn(err)
			return err
		}
		return nil
	}
}

// VerifyAuthTokenHandler wraps next with a bearer token check. An empty token
// accepts every request.
func VerifyAuthTokenHandler(token string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyAuthToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(ClientIDHeader)).Warn(err)
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func verifyAuthToken(token string, r *http.Request) error {
	if token == "" {
		return nil
	}

	userToken := GetUserTokenFromHTTPRequest(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(userToken)) != 1 {
		return errors.New("invalid auth token").
			WithType(ErrTypeUnauthorized).
			WithTag("path", r.URL.Path)
	}
	return nil
}

// GetUserTokenFromHTTPRequest returns the bearer token from the Authorization
// header, or from the token query parameter for clients that cannot set
// headers such as browser websockets.
func GetUserTokenFromHTTPRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
