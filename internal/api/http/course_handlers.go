package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/course"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/enrollment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

// PUT /admin/courses/{courseID}
// Upserts the local course record. The structure snapshot here is the
// eager path for lesson counting; the resolver cache is invalidated so
// a changed structure takes effect immediately.
func PutCourseHandler(store *course.SQLStore, resolver *course.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "courseID"))
		if id == "" {
			http.Error(w, "courseID required", http.StatusBadRequest)
			return
		}
		var c course.Course
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		c.ID = id
		if err := store.Put(r.Context(), c); err != nil {
			apperr.Write(w, err)
			return
		}
		resolver.Invalidate(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /courses/{courseID}/enroll
// Creates an enrollment for the caller. Duplicate enrollment surfaces
// as a conflict from the unique (user_id,course_id) constraint.
func EnrollHandler(store *enrollment.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		if courseID == "" {
			http.Error(w, "courseID required", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		e, err := store.Create(r.Context(), sub, courseID)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(e)
	}
}

// PATCH /admin/enrollments/{enrollmentID}/status
func SetEnrollmentStatusHandler(store *enrollment.SQLStore, cache *enrollment.Cache) http.HandlerFunc {
	type req struct {
		UserID   string `json:"user_id"`
		CourseID string `json:"course_id"`
		Status   string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "enrollmentID"))
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		st := enrollment.Status(body.Status)
		switch st {
		case enrollment.StatusPending, enrollment.StatusActive, enrollment.StatusCompleted:
		default:
			apperr.Write(w, apperr.NewValidationError("unknown status %q", body.Status))
			return
		}
		if err := store.SetStatus(r.Context(), id, st); err != nil {
			apperr.Write(w, err)
			return
		}
		switch {
		case body.UserID != "" && body.CourseID != "":
			cache.Invalidate(body.UserID, body.CourseID)
		case body.UserID != "":
			cache.InvalidateUser(body.UserID)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
