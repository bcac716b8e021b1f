package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"noticeboard/internal/config"
	"noticeboard/internal/consul"
	"noticeboard/internal/devserver"
	"noticeboard/internal/logger"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	port := config.GetEnvOrDefault("DEVSERVER_PORT", "8000")
	host := config.GetEnvOrDefault("DEVSERVER_HOST", "localhost")
	serviceName := config.GetEnvOrDefault("API_SERVICE_NAME", "noticeboard-api")
	consulAddr := os.Getenv("CONSUL_HTTP_ADDR")

	lgr := logger.New()
	logger.SetDefault(lgr)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := devserver.DefaultConfig()
	cfg.TokenField = config.GetEnvOrDefault("DEVSERVER_TOKEN_FIELD", cfg.TokenField)
	cfg.UserField = config.GetEnvOrDefault("DEVSERVER_USER_FIELD", cfg.UserField)
	cfg.WrapProfile = os.Getenv("DEVSERVER_WRAP_PROFILE") == "true"
	cfg.RegisterIssuesToken = os.Getenv("DEVSERVER_REGISTER_LOGIN") != "false"
	if origins := os.Getenv("DEVSERVER_ALLOW_ORIGINS"); origins != "" {
		cfg.AllowOrigins = strings.Split(origins, ",")
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      devserver.New(cfg, lgr).RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Register with Consul when an agent is configured
	var registry *consul.Client
	serviceID := fmt.Sprintf("%s-%s-%s", serviceName, host, port)
	if consulAddr != "" {
		var err error
		registry, err = consul.NewClient(consulAddr, os.Getenv("CONSUL_HTTP_TOKEN"))
		if err != nil {
			lgr.Error("Failed to create Consul client", "error", err)
			os.Exit(1)
		}

		// Clean up a stale registration from a previous crash
		_ = registry.Deregister(serviceID)

		portNum, err := strconv.Atoi(port)
		if err != nil {
			lgr.Error("Invalid DEVSERVER_PORT", "port", port, "error", err)
			os.Exit(1)
		}

		err = registry.Register(&consul.Registration{
			ID:        serviceID,
			Name:      serviceName,
			Address:   host,
			Port:      portNum,
			Tags:      []string{"auth", "devserver"},
			HealthURL: fmt.Sprintf("http://%s:%s/health", host, port),
		})
		if err != nil {
			lgr.Error("Failed to register with Consul", "error", err)
			os.Exit(1)
		}
		lgr.Info("Registered with Consul", "service_id", serviceID)
	}

	go func() {
		lgr.Info("Dev server listening", "port", port, "token_field", cfg.TokenField, "user_field", cfg.UserField)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("Shutting down dev server")

	if registry != nil {
		if err := registry.Deregister(serviceID); err != nil {
			lgr.Warn("Failed to deregister from Consul", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lgr.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	lgr.Info("Dev server stopped")
}
