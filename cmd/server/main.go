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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tobanev/session-auth-service/internal/config"
	"github.com/tobanev/session-auth-service/internal/cookie"
	"github.com/tobanev/session-auth-service/internal/database"
	"github.com/tobanev/session-auth-service/internal/handler"
	"github.com/tobanev/session-auth-service/internal/middleware"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/repository"
	"github.com/tobanev/session-auth-service/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories, services, and handlers
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	authService := service.NewAuthService(userRepo, sessionRepo, cfg, logger)
	sessionService := service.NewSessionService(sessionRepo, cfg, logger)
	codec := cookie.NewCodec(cfg.SessionSecret, cfg.IsProduction(), cfg.SessionTTL)
	authHandler := handler.NewAuthHandler(authService, sessionService, codec, logger)
	dataHandler := handler.NewDataHandler()
	auth := middleware.NewAuthenticator(sessionService, codec, logger)

	// Create router with middleware
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RateLimiter())

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.With(middleware.LoginRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)).
			Post("/login", authHandler.Login)
		// Logout verifies the session itself so double logout stays a 401.
		r.Post("/logout", authHandler.Logout)
		r.Get("/public", dataHandler.PublicData)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Post("/renew", authHandler.Renew)
			r.Post("/reset", authHandler.ResetPassword)
			r.With(auth.CheckExpiration).Get("/profile", authHandler.Profile)
			r.With(auth.CheckExpiration, middleware.RequireRole(model.RoleAdmin)).
				Get("/data", dataHandler.AdminData)
		})
	})

	// Create server with timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background sweeper for expired session rows
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				sessionService.Sweep(sweepCtx)
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server is shutting down")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited properly")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
