package http

import (
	"net/http"
	"strconv"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/audit"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

// GET /admin/events?offset=0&limit=100
// Tails the append-only event log from an offset, for external sync or
// inspection.
func ListEventsHandler(log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
		if offset < 0 {
			offset = 0
		}
		limit := parseIntDefault(q.Get("limit"), 100)
		events, err := log.Since(r.Context(), offset, limit)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, events)
	}
}
