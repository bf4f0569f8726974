package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

func Recover(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					cid := GetCorrelationID(r.Context())
					logger.WithFields(logrus.Fields{
						"panic":          rec,
						"path":           r.URL.Path,
						"correlation_id": cid,
					}).Error("recovered from panic")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(errorResponse{
						Error:         "internal server error",
						CorrelationID: cid,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
