package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minjcho/auth-service/internal/audit"
	"github.com/minjcho/auth-service/internal/config"
	"github.com/minjcho/auth-service/internal/events"
	"github.com/minjcho/auth-service/internal/httpserver"
	"github.com/minjcho/auth-service/internal/logging"
	"github.com/minjcho/auth-service/internal/middleware"
	"github.com/minjcho/auth-service/internal/repo"
	"github.com/minjcho/auth-service/internal/service"
	"github.com/minjcho/auth-service/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_ACCESS_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	store := &repo.GormRepo{DB: db}

	codec := &tokens.Codec{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	indexer, err := audit.NewIndexer(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESAuditIndex)
	if err != nil {
		log.Fatalf("audit init error: %v", err)
	}

	svc := &service.AuthService{
		Repo:   store,
		Codec:  codec,
		Events: producer,
		Audit:  indexer,
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Gate:        &middleware.Gate{Repo: store, Codec: codec},
		Logger:      logger,
	})

	pruner := &repo.Pruner{
		Repo:      store,
		Retention: cfg.BlacklistRetention,
		Interval:  cfg.PruneInterval,
	}
	prunerCtx, stopPruner := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer stopPruner()
	go pruner.Run(prunerCtx)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
