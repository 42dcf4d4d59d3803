package httpapi

import (
	"net/http"

	"github.com/erauner12/jirasync/internal/jira"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CorrelationMiddleware reads X-Correlation-ID and binds it to the request:
// into the context logger, onto outbound instance calls, and back onto the
// response. Generates one when the caller doesn't provide it. This is what
// lets a single webhook delivery be traced through this service and across
// both instances' logs.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		// Echo for caller verification.
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := jira.WithCorrelationID(r.Context(), correlationID)

		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
