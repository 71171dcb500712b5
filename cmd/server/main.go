package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/blob"
	"github.com/webpods/webpods/internal/cache"
	"github.com/webpods/webpods/internal/config"
	"github.com/webpods/webpods/internal/engine"
	"github.com/webpods/webpods/internal/ratelimit"
	"github.com/webpods/webpods/internal/server"
	"github.com/webpods/webpods/internal/storage"
)

func main() {
	logger := log.New(os.Stdout, "webpods ", log.LstdFlags|log.LUTC)

	cfg, path, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	logger.Printf("loaded config from %s", path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("storage error: %v", err)
	}
	defer store.Close()
	logger.Printf("storage: %s", store.Dialect())

	var blobs engine.BlobStore
	if cfg.Blob.Root != "" {
		fs, err := blob.NewFSStore(cfg.Blob.Root)
		if err != nil {
			logger.Fatalf("blob store error: %v", err)
		}
		blobs = fs
	}

	cacheLayer, backend, err := newCache(ctx, cfg)
	if err != nil {
		logger.Fatalf("cache error: %v", err)
	}
	logger.Printf("cache: %s", backend)

	limiter, backend := newLimiter(store, cfg)
	logger.Printf("rate limiter: %s", backend)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		logger.Fatalf("auth setup error: %v", err)
	}

	eng := engine.New(store, blobs, cacheLayer, nil, engine.Options{
		MaxPayloadBytes:        cfg.Limits.MaxPayloadBytes,
		ExternalThresholdBytes: cfg.Limits.ExternalThresholdBytes,
		MaxRecordLimit:         cfg.Limits.MaxRecordLimit,
	})

	srv := server.New(cfg, eng, verifier, limiter)

	go watchConfig(ctx, logger, path, func(updated *config.Config) {
		newVerifier, err := auth.NewVerifier(ctx, updated.Auth)
		if err != nil {
			logger.Printf("config reload: auth verifier update failed: %v", err)
			newVerifier = nil
		}
		srv.UpdateConfig(updated, newVerifier)
	})

	go func() {
		logger.Printf("server listening on %s", cfg.Server.Address)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Printf("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func newCache(ctx context.Context, cfg *config.Config) (*cache.Cache, string, error) {
	ttls := cache.TTLs{
		Pods:          time.Duration(cfg.Cache.Pools.PodsTTLSeconds) * time.Second,
		Streams:       time.Duration(cfg.Cache.Pools.StreamsTTLSeconds) * time.Second,
		SingleRecords: time.Duration(cfg.Cache.Pools.SingleRecordsTTLSeconds) * time.Second,
		RecordLists:   time.Duration(cfg.Cache.Pools.RecordListsTTLSeconds) * time.Second,
	}
	switch cfg.Cache.Adapter {
	case "redis":
		client, err := cache.NewRedisClientFromURL(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, "", err
		}
		return cache.New(cache.NewRedisAdapter(client), ttls), "redis", nil
	case "none":
		return cache.New(nil, ttls), "none", nil
	default:
		return cache.New(cache.NewMemoryAdapter(), ttls), "memory", nil
	}
}

func newLimiter(store *storage.Store, cfg *config.Config) (ratelimit.Limiter, string) {
	limits := ratelimit.Limits{
		Read:         cfg.RateLimits.Read,
		Write:        cfg.RateLimits.Write,
		PodCreate:    cfg.RateLimits.PodCreate,
		StreamCreate: cfg.RateLimits.StreamCreate,
	}
	switch cfg.RateLimits.Adapter {
	case "memory":
		return ratelimit.NewMemoryLimiter(limits), "memory"
	case "none":
		return ratelimit.NoopLimiter{}, "none"
	default:
		return ratelimit.NewSQLLimiter(store, limits), "sql"
	}
}

func watchConfig(ctx context.Context, logger *log.Logger, path string, onReload func(cfg *config.Config)) {
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Printf("config watcher error: %v", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Printf("config watcher error: %v", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		logger.Printf("config watcher error: %v", err)
	}

	var mu sync.Mutex
	var timer *time.Timer

	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(500*time.Millisecond, func() {
			updated, err := config.LoadFromPath(path)
			if err != nil {
				logger.Printf("config reload error: %v", err)
				return
			}
			logger.Printf("config reloaded from %s", path)
			onReload(updated)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleReload()
			}
		case err := <-watcher.Errors:
			if err != nil {
				logger.Printf("config watcher error: %v", err)
			}
		}
	}
}
