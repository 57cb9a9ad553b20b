package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/redis/go-redis/v9"
	"github.com/storacha/go-didauth/config"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/nonce"
	"github.com/storacha/go-didauth/resolver"
	"github.com/storacha/go-didauth/resolver/cache"
	"github.com/storacha/go-didauth/vdr/key"
	"github.com/storacha/go-didauth/vdr/sql"
	"github.com/storacha/go-didauth/vdr/web"
)

var log = logging.Logger("didauthd")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("loading configuration", "error", err)
	}
	lvl, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		log.Fatalw("parsing log level", "level", cfg.LogLevel, "error", err)
	}
	logging.SetAllLoggers(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalw("daemon stopped", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	svc, closeFn, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.ListenAddr, "methods", svc.registry.Methods())
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type service struct {
	registry *resolver.Registry
	verifier *didauth.Verifier
}

// build wires the registry and verifier. Redis and Postgres are used only
// when configured.
func build(ctx context.Context, cfg config.Config) (*service, func(), error) {
	closeFn := func() {}
	horizon := 2 * cfg.Window

	backends := []resolver.Option{
		resolver.WithBackend(key.New()),
		resolver.WithTimeout(cfg.ResolveTimeout),
	}
	if cfg.WebInsecure {
		backends = append(backends, resolver.WithBackend(web.New(web.WithInsecure())))
	} else {
		backends = append(backends, resolver.WithBackend(web.New()))
	}
	if cfg.PostgresDSN != "" {
		store, err := sql.Open(ctx, cfg.PostgresDSN, cfg.SQLMethod)
		if err != nil {
			return nil, closeFn, err
		}
		backends = append(backends, resolver.WithBackend(store))
	}

	var nonces nonce.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closeFn = func() { _ = client.Close() }
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, closeFn, err
		}
		rc, err := cache.NewRedis(client, cache.WithTTL(cfg.CacheTTL))
		if err != nil {
			return nil, closeFn, err
		}
		backends = append(backends, resolver.WithCache(rc))
		if nonces, err = nonce.NewRedis(client, horizon, nonce.DefaultPrefix); err != nil {
			return nil, closeFn, err
		}
	} else {
		mc, err := cache.NewMemory(cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, closeFn, err
		}
		backends = append(backends, resolver.WithCache(mc))
		nonces = nonce.NewMemory(horizon)
	}

	reg, err := resolver.NewRegistry(backends...)
	if err != nil {
		return nil, closeFn, err
	}
	v, err := didauth.NewVerifier(reg,
		didauth.WithWindow(cfg.Window),
		didauth.WithNonceStore(nonces),
	)
	if err != nil {
		return nil, closeFn, err
	}
	return &service{registry: reg, verifier: v}, closeFn, nil
}
