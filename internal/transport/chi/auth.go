package chi

import (
	"net"
	"net/http"
)

// apiKeyHeader carries the client credential.
const apiKeyHeader = "X-API-Key"

// exemptPaths are routes that bypass authentication and admission.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// keyRequiredPaths are the mutating document routes. Everything else accepts
// anonymous callers; a key presented there is still validated so admission
// can trust the key-derived client identity.
var keyRequiredPaths = map[string]struct{}{
	"/documents/upload":  {},
	"/documents/reindex": {},
}

// APIKeyMiddleware returns a middleware that validates the X-API-Key header.
// A key is mandatory only on the document-mutating routes; chat and stats
// remain open to anonymous callers. If apiKeys is empty, authentication is
// disabled (pass-through).
func APIKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				if _, required := keyRequiredPaths[r.URL.Path]; required {
					writeError(w, http.StatusUnauthorized, codeBadRequest, "missing API key")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := validKeys[key]; !ok {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies the caller for admission control: a key-derived handle
// when the request carries an API key, otherwise the remote host.
func ClientID(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		if len(key) > 8 {
			key = key[:8]
		}
		return "key_" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
