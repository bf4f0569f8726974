package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

const HeaderUserID = "X-User-Id"

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// RequireUserID rejects requests without X-User-Id and stores the id in the context.
// The caller identity is established upstream; this service only trusts the header.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errorResponse{
				Error:         "missing required header: X-User-Id",
				CorrelationID: GetCorrelationID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}
