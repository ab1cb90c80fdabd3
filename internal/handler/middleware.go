package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// RequestLogger logs every request once it has been served
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			l := log
			if id := middleware.GetReqID(r.Context()); id != "" {
				l = log.WithRequestID(id)
			}
			l.HTTPRequest(r.Method, r.URL.Path, status, time.Since(start), r.RemoteAddr)
		})
	}
}
