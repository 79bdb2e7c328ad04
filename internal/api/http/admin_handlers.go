package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/assessment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

// PUT /admin/tests/{testID}
func PutTestHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		var t assessment.Test
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		t.ID = testID
		if err := svc.PutTest(r.Context(), t); err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, map[string]string{"id": testID})
	}
}

// POST /admin/tests/{testID}/show-results  {"show_results": bool}
func SetShowResultsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		var req struct {
			ShowResults bool `json:"show_results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := svc.SetShowResults(r.Context(), testID, req.ShowResults); err != nil {
			apperr.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /admin/tests/{testID}/max-attempts  {"max_attempts": n}
func SetMaxAttemptsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := strings.TrimSpace(chi.URLParam(r, "testID"))
		var req struct {
			MaxAttempts int `json:"max_attempts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := svc.SetMaxAttempts(r.Context(), testID, req.MaxAttempts); err != nil {
			apperr.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /admin/attempts/{attemptID}/retake  {"allowed": bool}
func SetRetakeAllowedHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			Allowed bool `json:"allowed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := svc.SetRetakeAllowed(r.Context(), attemptID, req.Allowed); err != nil {
			apperr.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /admin/attempts/{attemptID}/violations  {"type": "...", "description": "..."}
func RecordViolationHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		v, err := svc.RecordViolation(r.Context(), attemptID, req.Type, req.Description)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, v)
	}
}

// GET /admin/attempts/{attemptID}/violations
func ListViolationsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		vs, err := svc.ListViolations(r.Context(), attemptID)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, vs)
	}
}

// POST /admin/attempts/{attemptID}/release
// {"manual_points": {"q2": 25}}
func ReleaseVerdictHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		var req struct {
			ManualPoints map[string]float64 `json:"manual_points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a, err := svc.ReleaseVerdict(r.Context(), attemptID, req.ManualPoints)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		writeJSON(w, a)
	}
}
