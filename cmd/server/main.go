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

	"github.com/OnishkovValera/CyberSec1/internal/auth"
	"github.com/OnishkovValera/CyberSec1/internal/config"
	apphttp "github.com/OnishkovValera/CyberSec1/internal/http"
	"github.com/OnishkovValera/CyberSec1/internal/repository/sqlite"
	"github.com/OnishkovValera/CyberSec1/internal/sanitize"
	"github.com/OnishkovValera/CyberSec1/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	key := auth.DeriveKey(cfg.JWT.Secret, logger)
	tokens := auth.NewTokenService(key, cfg.TokenTTL())

	verifier, err := service.NewPasswordVerifier(userRepo)
	if err != nil {
		logger.Fatalf("setup credential verifier: %v", err)
	}
	userService := service.NewUserService(verifier, tokens, userRepo, sanitize.New(), logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, tokens, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (token ttl %s)", cfg.Server.Addr, tokens.TTL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
