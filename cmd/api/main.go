//	@title			Trackhouse API
//	@version		1.0
//	@description	Versioned audio-project storage: projects, branches, versions, and previews.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/trackhouse/service/internal/auth"
	"github.com/trackhouse/service/internal/branch"
	"github.com/trackhouse/service/internal/config"
	"github.com/trackhouse/service/internal/db"
	appMiddleware "github.com/trackhouse/service/internal/middleware"
	"github.com/trackhouse/service/internal/preview"
	"github.com/trackhouse/service/internal/project"
	"github.com/trackhouse/service/internal/response"
	"github.com/trackhouse/service/internal/storage"
	"github.com/trackhouse/service/internal/user"
	"github.com/trackhouse/service/internal/version"

	_ "github.com/trackhouse/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo, store)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(userSvc, cfg)
	authHandler := auth.NewHandler(authSvc)

	projectRepo := project.NewRepository(pool)
	projectSvc := project.NewService(projectRepo, store, cfg.SignedURLTTL)
	projectHandler := project.NewHandler(projectSvc)

	branchRepo := branch.NewRepository(pool)
	branchSvc := branch.NewService(branchRepo, projectRepo, store)
	branchHandler := branch.NewHandler(branchSvc)

	versionRepo := version.NewRepository(pool)
	versionSvc := version.NewService(versionRepo, branchRepo, store, cfg.SignedURLTTL)
	versionHandler := version.NewHandler(versionSvc)

	previewRepo := preview.NewRepository(pool)
	previewSvc := preview.NewService(previewRepo, versionRepo, store, cfg.SignedURLTTL)
	previewHandler := preview.NewHandler(previewSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestSize(cfg.MaxUploadBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})

		// Protected user endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/onboarding", userHandler.Onboarding)
		})

		// Protected hierarchy endpoints
		r.Route("/projects", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Patch("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)

				r.Route("/branches", func(r chi.Router) {
					r.Post("/", branchHandler.Create)

					r.Route("/{branchName}", func(r chi.Router) {
						r.Get("/", branchHandler.Get)
						r.Patch("/", branchHandler.Update)
						r.Delete("/", branchHandler.Delete)

						r.Route("/versions", func(r chi.Router) {
							r.Get("/", versionHandler.List)
							r.Post("/", versionHandler.Create)

							r.Route("/{versionName}", func(r chi.Router) {
								r.Get("/", versionHandler.Get)
								r.Delete("/", versionHandler.Delete)

								r.Route("/previews", func(r chi.Router) {
									r.Post("/", previewHandler.Create)
									r.Get("/", previewHandler.List)
									r.Delete("/{previewID}", previewHandler.Delete)
								})
							})
						})
					})
				})
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		// generous enough for multipart archive uploads
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
