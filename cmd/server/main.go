package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SecondList/EcommerceAPI/internal/config"
	"github.com/SecondList/EcommerceAPI/internal/db"
	"github.com/SecondList/EcommerceAPI/internal/handlers"
	"github.com/SecondList/EcommerceAPI/internal/logging"
	"github.com/SecondList/EcommerceAPI/internal/metrics"
	"github.com/SecondList/EcommerceAPI/internal/mykafka"
	"github.com/SecondList/EcommerceAPI/internal/repo"
	"github.com/SecondList/EcommerceAPI/internal/service"
	"github.com/SecondList/EcommerceAPI/internal/stripe"
	httpserver "github.com/SecondList/EcommerceAPI/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	gormDB, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	var producer service.EventPublisher
	var kafkaProd *mykafka.Producer
	if cfg.KafkaAddress != "" {
		kafkaProd = mykafka.NewProducer([]string{cfg.KafkaAddress})
		producer = kafkaProd
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tokenSvc := &service.TokenService{
		Repo:       &repo.AuthRepo{DB: gormDB},
		Producer:   producer,
		Metrics:    m,
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
	checkoutSvc := &service.CheckoutService{
		Repo:     &repo.CheckoutRepo{DB: gormDB},
		Gateway:  stripe.NewClient(cfg.StripeBaseURL, cfg.StripeAPIKey),
		Producer: producer,
		Metrics:  m,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:     &handlers.AuthHandler{Tokens: tokenSvc},
		CheckoutHandler: &handlers.CheckoutHandler{Checkout: checkoutSvc},
		JWTSecret:       []byte(cfg.JWTSecret),
		Registry:        registry,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if kafkaProd != nil {
		if err := kafkaProd.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
