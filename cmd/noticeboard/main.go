package main

import (
	"fmt"
	"os"

	"noticeboard/internal/api"
	"noticeboard/internal/cache"
	"noticeboard/internal/config"
	"noticeboard/internal/consul"
	"noticeboard/internal/logger"
	"noticeboard/internal/session"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := newRootCmd(buildApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is the wired client: one session store shared by the manager and the API client
type app struct {
	manager session.Manager
}

// buildApp wires config -> cache -> session store -> API client -> manager
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	lgr := logger.New()
	logger.SetDefault(lgr)

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(cache.New(backend, cache.WithLogger(lgr)), lgr)

	baseURL := cfg.APIBaseURL
	if cfg.UseDiscovery() {
		baseURL, err = discoverBaseURL(cfg)
		if err != nil {
			return nil, err
		}
		lgr.Debug("Resolved API base URL through consul", "service", cfg.APIServiceName, "base_url", baseURL)
	}

	client := api.New(baseURL, store, api.WithLogger(lgr))

	return &app{manager: session.NewManager(store, client)}, nil
}

func newBackend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		return cache.NewRedisBackend(rdb, cfg.SessionKeyPrefix), nil
	case config.BackendMemory:
		return cache.NewMemoryBackend(), nil
	case config.BackendFile:
		return cache.NewFileBackend(cfg.SessionFile), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func discoverBaseURL(cfg *config.Config) (string, error) {
	client, err := consul.NewClient(cfg.ConsulAddr, cfg.ConsulToken)
	if err != nil {
		return "", err
	}

	baseURL, err := consul.ResolveBaseURL(client, cfg.APIServiceName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve API base URL: %w", err)
	}
	return baseURL, nil
}
