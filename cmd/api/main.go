package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"absensi/internal/account"
	"absensi/internal/attendance"
	"absensi/internal/config"
	"absensi/internal/identity"
	"absensi/internal/roster"
	"absensi/internal/schedule"
	"absensi/internal/server"
	"absensi/internal/store"
)

func main() {
	cfg := config.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App, log *logrus.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	provider := identity.NewJWTProvider(db.Client, cfg.JWTSigningKey, cfg.JWTIssuer)
	rosterRepo := roster.NewRepository(db.Client)
	scheduleRepo := schedule.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	checkins := attendance.NewService(attendanceRepo, scheduleRepo, rosterRepo, cfg.Location())
	accounts := account.NewService(provider, rosterRepo, attendanceRepo, log)

	srv := &server.Server{
		Cfg:      cfg,
		Provider: provider,
		Accounts: accounts,
		CheckIns: checkins,
		Records:  attendanceRepo,
		Users:    rosterRepo,
		DBHealthy: func(ctx context.Context) bool {
			return db.Client.PingContext(ctx) == nil
		},
		RedisHealthy: redisClient.Healthy,
		Log:          log,
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server forced shutdown: %v", err)
	}

	log.Info("server exited")
	return nil
}
