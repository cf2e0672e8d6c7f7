package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krchnk/exchange-records/internal/auth"
	"github.com/Krchnk/exchange-records/internal/config"
	"github.com/Krchnk/exchange-records/internal/handlers"
	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/Krchnk/exchange-records/internal/storages/memory"
	"github.com/Krchnk/exchange-records/internal/storages/postgres"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	configPath := flag.String("c", "config.env", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	logger.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
		"db":      cfg.DBConfig.String(),
	}).Info("configuration loaded")

	store, err := openStorage(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()
	logger.WithField("driver", cfg.StorageDriver).Info("storage ready")

	authn := auth.NewAuthenticator(store, cfg.TokenCacheTTL)
	svc := service.New(store, authn)
	h := handlers.NewHandler(svc, authn)

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(loggingMiddleware())

	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to run server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}

func openStorage(cfg config.Config) (storages.Storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("using in-memory storage, data will not survive a restart")
		return memory.New(), nil
	}
	return postgres.NewStorage(cfg.DBConfig)
}

const requestIDHeader = "X-Request-ID"

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"request_id": requestID,
		}).Info("request received")

		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start),
			"request_id": requestID,
		}

		if len(c.Errors) > 0 {
			logger.WithFields(fields).WithError(c.Errors.Last()).Error("request failed")
		} else {
			logger.WithFields(fields).Info("request completed")
		}
	}
}
