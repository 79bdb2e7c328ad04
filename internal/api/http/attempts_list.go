package http

import (
	"net/http"
	"strings"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/assessment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

// GET /attempts?test_id=...&course_id=...&user_id=...&limit=50&offset=0
// RBAC:
// - attempt:view-all (admins) can list with any filter
// - attempt:view-own is forced to the caller's own user_id
func ListAttemptsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		q := r.URL.Query()
		userID := strings.TrimSpace(q.Get("user_id"))
		if role != "admin" {
			userID = sub
		}
		list, err := svc.ListAttempts(r.Context(), assessment.AttemptListOpts{
			TestID:   strings.TrimSpace(q.Get("test_id")),
			CourseID: strings.TrimSpace(q.Get("course_id")),
			UserID:   userID,
			Limit:    parseIntDefault(q.Get("limit"), 50),
			Offset:   parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			apperr.Write(w, err)
			return
		}
		if role != "admin" {
			list = svc.RedactForStudent(r.Context(), list)
		}
		writeJSON(w, list)
	}
}
