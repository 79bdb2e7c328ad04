package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/assessment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

// GET /courses/{courseID}/tests?active=1
// Students always get the active set with answer keys stripped; admins
// may list inactive tests and see the keys.
func ListTestsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		if courseID == "" {
			http.Error(w, "courseID required", http.StatusBadRequest)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		isAdmin := role == "admin"

		activeOnly := true
		if isAdmin && r.URL.Query().Get("active") == "0" {
			activeOnly = false
		}
		list, err := svc.ListTests(r.Context(), courseID, activeOnly, isAdmin)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, list)
	}
}
