package kit

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const HeaderServiceToken = "X-Service-Token"

func MetricsAuth(token string) func(http.Handler) http.Handler {
	return tokenAuth(token, func(r *http.Request) (string, bool) {
		return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	})
}

func ServiceAuth(token string) func(http.Handler) http.Handler {
	return tokenAuth(token, func(r *http.Request) (string, bool) {
		got := r.Header.Get(HeaderServiceToken)
		return got, got != ""
	})
}

func tokenAuth(token string, extract func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := extract(r)
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
