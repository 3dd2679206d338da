package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/database"
	"github.com/lordpluha/chronos/internal/handler"
	"github.com/lordpluha/chronos/internal/queue"
	"github.com/lordpluha/chronos/internal/repository"
	"github.com/lordpluha/chronos/internal/router"
	"github.com/lordpluha/chronos/internal/service"
)

const sessionSweepInterval = time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Rate limiting degrades without Redis, but the OAuth replay guard
		// cannot; running open to code replay is not acceptable.
		log.Fatal("redis: connection failed; replay protection requires redis")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	twoFactorStore := repository.NewTwoFactorRepo(db)
	codeStore := repository.NewOAuthCodeStore(rdb)

	events := queue.NewPublisher()
	googleSvc := service.NewGoogleService(cfg)
	twoFactorSvc := service.NewTwoFactorService(users, twoFactorStore, cfg.TOTPIssuer, events)
	authSvc := service.NewAuthService(cfg, users, sessions, twoFactorSvc, googleSvc, codeStore, events)

	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			log.Printf("security consumer stopped: %v", err)
		}
	}()
	go sweepSessions(sessions)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, cfg, rdb,
		handler.NewAuthHandler(cfg, authSvc),
		handler.NewTwoFactorHandler(twoFactorSvc),
		handler.NewOAuthHandler(cfg, authSvc, googleSvc))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// sweepSessions periodically removes sessions past their retention window.
// Lookups already treat expired rows as absent; the sweep just keeps the
// table from growing forever.
func sweepSessions(sessions *repository.SessionRepo) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := sessions.DeleteExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("session sweep failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("session sweep removed %d expired sessions", n)
		}
	}
}
