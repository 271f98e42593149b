package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/labsphere/environment-reservation/internal/booking"
	"github.com/labsphere/environment-reservation/internal/config"
	"github.com/labsphere/environment-reservation/internal/database"
	"github.com/labsphere/environment-reservation/internal/handler"
	"github.com/labsphere/environment-reservation/internal/queue"
	"github.com/labsphere/environment-reservation/internal/repository"
	"github.com/labsphere/environment-reservation/internal/router"
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

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	environments := repository.NewEnvironmentRepo(db)
	reservations := repository.NewReservationRepo(db)
	history := repository.NewHistoryRepo(db)

	svc := booking.NewService(db, users, environments, reservations, history)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	go func() {
		if err := queue.StartArchivedConsumer(); err != nil {
			log.Printf("archive consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Cfg:          cfg,
		Redis:        rdb,
		CacheCfg:     config.LoadCacheConfig(),
		RateCfg:      config.LoadRateLimitConfig(),
		Health:       handler.NewHealthHandler(db),
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Users:        handler.NewUserHandler(cfg, users, reservations),
		Environments: handler.NewEnvironmentHandler(environments, reservations),
		Reservations: handler.NewReservationHandler(svc, users, reservations),
		History:      handler.NewHistoryHandler(history),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
