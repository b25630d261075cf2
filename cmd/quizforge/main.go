package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/quizforge/quizforge/internal/api/http"
	"github.com/quizforge/quizforge/internal/auth"
	"github.com/quizforge/quizforge/internal/config"
	"github.com/quizforge/quizforge/internal/db"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/rbac"
	"github.com/quizforge/quizforge/internal/scoring"
	"github.com/quizforge/quizforge/internal/session"
	"github.com/quizforge/quizforge/internal/storage"
	syncx "github.com/quizforge/quizforge/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh)
	users := auth.NewUserStore(dbh)
	events := syncx.NewEventRepo(dbh)

	if err := users.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// --- Core ---
	engine := scoring.NewEngine()
	machine := session.NewMachine(store, session.NewMemoryStore(), engine)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

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
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, users))

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// assets routes (protected; uploads admin-only)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs, rbac.Require("question:write"))
		})
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Learner surface
		pr.With(rbac.Require("test:view")).
			Get("/tests", api.ListTestsHandler(store))
		pr.With(rbac.Require("test:view")).
			Get("/tests/{testID}", api.GetTestHandler(store))

		pr.With(rbac.Require("quiz:study")).
			Post("/tests/{testID}/study", api.StudySubmitHandler(store, engine))
		pr.With(rbac.Require("quiz:study")).
			Post("/tests/{testID}/flashcard", api.FlashcardSubmitHandler(store))

		pr.With(rbac.Require("quiz:sim")).
			Get("/tests/{testID}/sim", api.SimStateHandler(store, machine, events))
		pr.With(rbac.Require("quiz:sim")).
			Post("/tests/{testID}/sim", api.SimConfigureHandler(machine))
		pr.With(rbac.Require("quiz:sim")).
			Post("/tests/{testID}/sim/step", api.SimStepHandler(machine, events))
		pr.With(rbac.Require("quiz:sim")).
			Post("/tests/{testID}/sim/stop", api.SimStopHandler(machine))

		pr.With(rbac.Require("history:view-own")).
			Get("/history", api.HistoryHandler(store))

		// Authoring surface (admins)
		pr.With(rbac.Require("test:write")).
			Post("/admin/tests", api.CreateTestHandler(store))
		pr.With(rbac.Require("test:write")).
			Put("/admin/tests/{testID}", api.UpdateTestHandler(store))
		pr.With(rbac.Require("test:write")).
			Delete("/admin/tests/{testID}", api.DeleteTestHandler(store))

		pr.With(rbac.Require("question:write")).
			Post("/admin/tests/{testID}/questions", api.AddQuestionHandler(store))
		pr.With(rbac.Require("question:write")).
			Put("/admin/questions/{questionID}", api.UpdateQuestionHandler(store, bs))
		pr.With(rbac.Require("question:write")).
			Delete("/admin/questions/{questionID}", api.DeleteQuestionHandler(store, bs))

		pr.With(rbac.Require("test:export")).
			Get("/admin/export", api.ExportTestsHandler(store))
		pr.With(rbac.Require("test:write")).
			Post("/admin/import", api.ImportTestsHandler(store, events))

		pr.With(rbac.Require("user:write")).
			Post("/admin/users", api.CreateUserHandler(users))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
