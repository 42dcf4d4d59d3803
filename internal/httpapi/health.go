package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type healthResponse struct {
	Status string         `json:"status"`
	Time   string         `json:"time"`
	Store  string         `json:"store"`
	Config map[string]any `json:"config"`
}

// Health reports readiness plus the redacted configuration summary, so an
// operator can see at a glance which instances this process is wired to
// without any secret leaving the process.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Store:  "ok",
		Config: s.Cfg.Summary(),
	}

	if err := s.Records.Ping(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("health check: store unreachable")
		resp.Status = "unhealthy"
		resp.Store = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
