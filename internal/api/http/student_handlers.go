package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/assessment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

type submitReq struct {
	Answers []struct {
		QuestionID string      `json:"question_id"`
		Response   interface{} `json:"response"`
	} `json:"answers"`
}

// POST /tests/{testID}/attempts
// Fails with 409 when the caller is not eligible for a new attempt and
// with 400 on malformed answers. The recorded attempt comes back with
// the verdict already resolved (or pending).
func SubmitAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		sub := rbac.SubjectFromContext(r.Context())

		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		responses := make(map[string]interface{}, len(req.Answers))
		for _, ans := range req.Answers {
			if ans.QuestionID == "" {
				apperr.Write(w, apperr.NewValidationError("answer missing question_id"))
				return
			}
			if _, dup := responses[ans.QuestionID]; dup {
				apperr.Write(w, apperr.NewValidationError("duplicate answer for question %q", ans.QuestionID))
				return
			}
			responses[ans.QuestionID] = ans.Response
		}

		a, err := svc.Submit(r.Context(), testID, sub, responses)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		// the submission response is an acknowledgment; detail flows
		// through the results endpoint and its visibility gate
		writeJSON(w, map[string]interface{}{
			"attempt_id":   a.ID,
			"ordinal":      a.Ordinal,
			"submitted_at": a.SubmittedAt,
		})
	}
}

// GET /tests/{testID}/results
func GetResultsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		sub := rbac.SubjectFromContext(r.Context())
		view, err := svc.Results(r.Context(), testID, sub)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, view)
	}
}

// GET /courses/{courseID}/progress
func GetProgressHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		sub := rbac.SubjectFromContext(r.Context())
		view, err := svc.Progress(r.Context(), sub, courseID)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, view)
	}
}
