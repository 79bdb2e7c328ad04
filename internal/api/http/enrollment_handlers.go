package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/enrollment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

// LessonCompleter is the enrollment write path used by the completion
// endpoint.
type LessonCompleter interface {
	Get(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error)
	CompleteLesson(ctx context.Context, enrollmentID, lessonID string) error
	TouchLastAccess(ctx context.Context, enrollmentID string) error
}

// POST /courses/{courseID}/lessons/{lessonID}/complete
// Marks a lesson done for the caller's enrollment and invalidates the
// cached snapshot so the next progress read sees it.
func CompleteLessonHandler(store LessonCompleter, cache *enrollment.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "courseID"))
		lessonID := strings.TrimSpace(chi.URLParam(r, "lessonID"))
		if courseID == "" || lessonID == "" {
			http.Error(w, "courseID and lessonID required", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())

		e, err := store.Get(r.Context(), sub, courseID)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		if err := store.CompleteLesson(r.Context(), e.ID, lessonID); err != nil {
			apperr.Write(w, err)
			return
		}
		_ = store.TouchLastAccess(r.Context(), e.ID)
		cache.Invalidate(sub, courseID)
		w.WriteHeader(http.StatusNoContent)
	}
}
