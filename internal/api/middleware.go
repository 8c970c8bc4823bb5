package api

import "net/http"

// APIKeyMiddleware enforces API key authentication on every request.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the value of header is compared to key; a missing, empty,
//     or incorrect key returns 401.
func APIKeyMiddleware(mode, header, key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Non-apikey modes or unconfigured key → allow everything.
		if mode != "apikey" || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(header) != key {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
