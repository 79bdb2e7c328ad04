package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/api/http"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/assessment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/audit"
	auth "github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/auth"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/config"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/course"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/db"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/enrollment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/grading"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/logging"
	rbac "github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", "err", err)
	}

	// --- Stores and services ---
	courseStore := course.NewSQLStore(dbh)
	resolver := course.NewResolver(
		course.NewHTTPSource(cfg.CourseServiceURL, nil),
		cfg.CourseFetchTimeout, cfg.CourseFetchRetry, logger)
	enrollStore := enrollment.NewSQLStore(dbh)
	enrollCache := enrollment.NewCache(enrollStore)
	attemptStore := assessment.NewSQLStore(dbh)
	auditLog := audit.NewLog(dbh, "bvt-training")
	grader := grading.NewDefaultGrader()

	svc := assessment.NewService(attemptStore, courseStore, enrollCache,
		resolver, grader, auditLog, logger)

	authSvc := auth.NewService(cfg.AuthSecret)
	loginCfg := auth.LoginConfig{AdminUser: cfg.AdminUser, AdminPassHash: cfg.AdminPassHash}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, loginCfg))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Student flow
		pr.With(rbac.Require("progress:view")).
			Get("/courses/{courseID}/progress", api.GetProgressHandler(svc))
		pr.With(rbac.Require("test:view")).
			Get("/courses/{courseID}/tests", api.ListTestsHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/tests/{testID}/attempts", api.SubmitAttemptHandler(svc))
		pr.With(rbac.Require("result:view-own")).
			Get("/tests/{testID}/results", api.GetResultsHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc))

		// Enrollment lifecycle
		pr.With(rbac.Require("progress:view")).
			Post("/courses/{courseID}/enroll", api.EnrollHandler(enrollStore))
		pr.With(rbac.Require("progress:view")).
			Post("/courses/{courseID}/lessons/{lessonID}/complete",
				api.CompleteLessonHandler(enrollStore, enrollCache))

		// Proctoring
		pr.With(rbac.Require("violation:record")).
			Post("/attempts/{attemptID}/violations", api.RecordViolationHandler(svc))

		// Admin configuration
		pr.With(rbac.Require("course:manage")).
			Put("/admin/courses/{courseID}", api.PutCourseHandler(courseStore, resolver))
		pr.With(rbac.Require("enrollment:manage")).
			Patch("/admin/enrollments/{enrollmentID}/status",
				api.SetEnrollmentStatusHandler(enrollStore, enrollCache))
		pr.With(rbac.Require("test:manage")).
			Put("/admin/tests/{testID}", api.PutTestHandler(svc))
		pr.With(rbac.Require("test:manage")).
			Patch("/admin/tests/{testID}/show-results", api.SetShowResultsHandler(svc))
		pr.With(rbac.Require("test:manage")).
			Patch("/admin/tests/{testID}/max-attempts", api.SetMaxAttemptsHandler(svc))
		pr.With(rbac.Require("retake:grant")).
			Patch("/admin/attempts/{attemptID}/retake", api.SetRetakeAllowedHandler(svc))
		pr.With(rbac.Require("verdict:release")).
			Post("/admin/attempts/{attemptID}/release", api.ReleaseVerdictHandler(svc))
		pr.With(rbac.Require("violation:view")).
			Get("/admin/attempts/{attemptID}/violations", api.ListViolationsHandler(svc))
		pr.With(rbac.Require("audit:view")).
			Get("/admin/events", api.ListEventsHandler(auditLog))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	logger.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
