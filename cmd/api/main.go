package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adityanagar10/buzzline/backend/internal/config"
	"github.com/adityanagar10/buzzline/backend/internal/repository/postgres"
	redisrepo "github.com/adityanagar10/buzzline/backend/internal/repository/redis"
	"github.com/adityanagar10/buzzline/backend/internal/service/cleanup"
	"github.com/adityanagar10/buzzline/backend/internal/service/session"
	transportHttp "github.com/adityanagar10/buzzline/backend/internal/transport/http"
	"github.com/adityanagar10/buzzline/backend/internal/transport/http/middleware"
	"github.com/adityanagar10/buzzline/backend/internal/transport/websocket"
	"github.com/adityanagar10/buzzline/backend/pkg/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg := config.LoadConfig()

	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")

	// The token cache is load-bearing for revocation, so a missing Redis
	// is a startup failure, not a degraded mode.
	redisClient, err := redisrepo.NewClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer redisClient.Close()

	identityRepo := postgres.NewIdentityRepo(db)
	profileRepo := postgres.NewProfileRepo(db)
	historyRepo := postgres.NewHistoryRepo(db, cfg.HistoryRetention())
	tokenCache := redisrepo.NewTokenCache(redisClient)

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})

	var googleVerifier session.FederatedVerifier
	if cfg.OAuthConfig.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(context.Background(), cfg.OAuthConfig.GoogleClientID)
		if err != nil {
			log.Fatalf("Failed to initialize Google verifier: %v", err)
		}
		googleVerifier = verifier
	} else {
		log.Println("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	registry := websocket.NewRegistry()

	sessionService := session.NewService(
		identityRepo,
		profileRepo,
		historyRepo,
		tokenCache,
		issuer,
		googleVerifier,
		registry,
		session.Config{
			AccessTokenTTL: cfg.AccessTokenTTL(),
			BcryptCost:     cfg.BcryptCost,
			StoreTimeout:   cfg.StoreTimeout(),
		},
	)
	accessVerifier := session.NewAccessVerifier(issuer, tokenCache)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	cleanupWorker := cleanup.NewWorker(historyRepo, cfg.HistoryRetention(), time.Hour)
	go cleanupWorker.Start(workerCtx)

	authHandler := transportHttp.NewAuthHandler(sessionService, cfg.RefreshTokenTTL(), cfg.IsProduction())
	oauthHandler := transportHttp.NewOAuthHandler(sessionService, &cfg.OAuthConfig, cfg.FrontendURL, cfg.RefreshTokenTTL(), cfg.IsProduction())
	wsHandler := websocket.NewHandler(accessVerifier, registry, originChecker(cfg.AllowedOrigins))

	mux := http.NewServeMux()

	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithDeviceContext(h)
	}
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithDeviceContext(middleware.RequireAuth(accessVerifier, h))
	}

	mux.HandleFunc("POST /api/auth/register", public(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", public(authHandler.Login))
	mux.HandleFunc("POST /api/auth/google", public(authHandler.GoogleAuth))
	mux.HandleFunc("GET /api/auth/google/login", public(oauthHandler.GoogleLogin))
	mux.HandleFunc("GET /api/auth/google/callback", public(oauthHandler.GoogleCallback))

	mux.HandleFunc("POST /api/auth/logout", protected(authHandler.Logout))
	mux.HandleFunc("POST /api/auth/link", protected(authHandler.LinkAccount))
	mux.HandleFunc("GET /api/auth/me", protected(authHandler.Me))
	mux.HandleFunc("GET /api/sessions", protected(authHandler.Sessions))
	mux.HandleFunc("GET /api/login-history", protected(authHandler.LoginHistory))

	// Auth is handled inside the WS handler itself.
	mux.HandleFunc("GET /ws", wsHandler.HandlePresence)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.SecurityHeaders(mux))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}
