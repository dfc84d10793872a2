package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"fader/cache"
	"fader/config"
	"fader/core/auth"
	"fader/core/events"
	"fader/db"
	"fader/logger"
	"fader/model"
	"fader/queue"
	"fader/repository"
	"fader/storage"
)

// Start initializes every dependency and runs the HTTP server until a
// shutdown signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	auth.SetSecret(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize minio", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect gorm", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(
		&model.Project{},
		&model.Invitation{},
		&model.Track{},
		&model.Version{},
		&model.Comment{},
	); err != nil {
		logger.Fatal("failed to migrate models", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	queue.InitClient(cfg)
	defer queue.CloseClient()

	hub := events.NewProjectHub()
	go hub.Run()
	defer hub.Stop()

	userRepo := repository.NewMySQLUserRepository(db.DB)
	projectRepo := repository.NewGormProjectRepository(db.GormDB)
	trackRepo := repository.NewGormTrackRepository(db.GormDB)
	versionRepo := repository.NewGormVersionRepository(db.GormDB)
	commentRepo := repository.NewGormCommentRepository(db.GormDB)

	apiHandler := NewAPIHandler(
		userRepo, projectRepo, trackRepo, versionRepo, commentRepo,
		storage.DefaultObjectStore(), hub, cfg,
	)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Auth
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Projects and invitations
	router.HandleFunc("/api/projects", apiHandler.AuthMiddleware(apiHandler.ListProjectsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", apiHandler.AuthMiddleware(apiHandler.CreateProjectHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}", apiHandler.AuthMiddleware(apiHandler.GetProjectHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/invitations", apiHandler.AuthMiddleware(apiHandler.CreateInvitationHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/invitations", apiHandler.AuthMiddleware(apiHandler.ListInvitationsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/invitations/{token}/accept", apiHandler.AuthMiddleware(apiHandler.AcceptInvitationHandler)).Methods(http.MethodPost)

	// Tracks
	router.HandleFunc("/api/projects/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.RenameTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)

	// Versions
	router.HandleFunc("/api/tracks/{id}/versions", apiHandler.AuthMiddleware(apiHandler.ListVersionsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/versions", apiHandler.AuthMiddleware(apiHandler.CreateVersionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/versions/{id}/notes", apiHandler.AuthMiddleware(apiHandler.UpdateVersionNotesHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/versions/{id}/master", apiHandler.AuthMiddleware(apiHandler.SetMasterHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/versions/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteVersionHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/versions/{id}/stream", apiHandler.AuthMiddleware(apiHandler.StreamHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/versions/{id}/peaks", apiHandler.AuthMiddleware(apiHandler.GetPeaksHandler)).Methods(http.MethodGet)

	// Comments
	router.HandleFunc("/api/versions/{id}/comments", apiHandler.AuthMiddleware(apiHandler.ListCommentsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/versions/{id}/comments", apiHandler.AuthMiddleware(apiHandler.CreateCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/comments/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteCommentHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/comments/{id}/resolve", apiHandler.AuthMiddleware(apiHandler.ResolveCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/comments/{id}/unresolve", apiHandler.AuthMiddleware(apiHandler.UnresolveCommentHandler)).Methods(http.MethodPost)

	// Upload presigning
	router.HandleFunc("/api/uploads/presign", apiHandler.AuthMiddleware(apiHandler.PresignUploadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/multipart", apiHandler.AuthMiddleware(apiHandler.OpenMultipartHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/multipart/parts", apiHandler.AuthMiddleware(apiHandler.PresignPartsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/multipart/complete", apiHandler.AuthMiddleware(apiHandler.CompleteMultipartHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/multipart/abort", apiHandler.AuthMiddleware(apiHandler.AbortMultipartHandler)).Methods(http.MethodPost)

	// Project event stream
	router.HandleFunc("/ws/projects/{id}", apiHandler.ProjectEventsHandler).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", logger.ErrorField(err))
	}
}

// corsMiddleware lets the browser client talk to the API from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
