package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// WorkerSecret guards the worker entry points with a shared secret header.
//
// An unset secret is a deployment configuration failure and answers 500 so
// operators notice; a wrong or missing header answers 401 before any queue
// state is touched.
func WorkerSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeJSON(w, http.StatusInternalServerError,
					map[string]string{"error": "server configuration error"})
				return
			}
			if r.Header.Get(worker.SecretHeader) != secret {
				writeJSON(w, http.StatusUnauthorized,
					map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
