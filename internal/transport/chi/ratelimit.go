package chi

import "net/http"

// Admitter decides whether a client may proceed.
type Admitter interface {
	Admit(clientID string) error
}

// AdmissionMiddleware returns a middleware that rejects over-limit clients
// with 429 before any work happens. Health and metrics are exempt.
func AdmissionMiddleware(admitter Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if admitter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if err := admitter.Admit(ClientID(r)); err != nil {
				msg := safeDomainMessage(err)
				if !rateLimitHandler(w, err, msg) {
					writeError(w, http.StatusTooManyRequests, codeRateLimited, msg)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
