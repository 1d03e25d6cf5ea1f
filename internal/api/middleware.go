// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wanderwin/proofcheck/internal/logging"
	"github.com/wanderwin/proofcheck/internal/metrics"
)

// requestIDMiddleware attaches a request ID to the context and response.
// An inbound X-Request-ID is honored so callers can correlate.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = logging.ContextWithLogger(ctx, logging.With().Str("request_id", id).Logger())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogMiddleware logs each request and records the API metrics.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		metrics.APIActiveRequests.Inc()
		defer metrics.APIActiveRequests.Dec()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(started)
		metrics.RecordAPIRequest(r.Method, r.URL.Path, ww.Status(), elapsed)

		logger := logging.Ctx(r.Context())
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Int("bytes", ww.BytesWritten()).
			Msg("request")
	})
}
