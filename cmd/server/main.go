package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reading-room/internal/config"
	"github.com/iliyamo/library-reading-room/internal/database"
	"github.com/iliyamo/library-reading-room/internal/handler"
	"github.com/iliyamo/library-reading-room/internal/queue"
	"github.com/iliyamo/library-reading-room/internal/repository"
	"github.com/iliyamo/library-reading-room/internal/router"
	"github.com/iliyamo/library-reading-room/internal/schedule"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Nil when Redis is unreachable; caching and rate limiting degrade to
	// no-ops in that case.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	bookRepo := repository.NewBookRepo(db)
	sessionRepo := repository.NewSessionRepo(db)

	manager := schedule.NewManager(cfg.Policy(), userRepo, bookRepo, sessionRepo)
	occupancy := schedule.NewOccupancyAggregator(cfg.Policy(), sessionRepo, cfg.OccupancyWindowDays)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Users:    handler.NewUserHandler(userRepo, tokenRepo),
		Books:    handler.NewBookHandler(bookRepo),
		Sessions: handler.NewSessionHandler(manager, occupancy),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg, rdb)

	// Booking events are consumed in the background; the consumer keeps
	// its own reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartSessionConsumer(); err != nil {
			log.Printf("session consumer stopped: %v", err)
		}
	}()

	// Prune long-expired refresh tokens once an hour.
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := tokenRepo.DeleteExpired(ctx, 24*time.Hour); err != nil {
				log.Printf("token prune failed: %v", err)
			} else if n > 0 {
				log.Printf("pruned %d expired refresh tokens", n)
			}
			cancel()
			time.Sleep(time.Hour)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
