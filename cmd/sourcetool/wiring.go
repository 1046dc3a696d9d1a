package main

import (
	"io"
	"log/slog"

	"github.com/trysourcetool/sourcetool/internal/config"
	"github.com/trysourcetool/sourcetool/pkg/adapters/bolt"
	"github.com/trysourcetool/sourcetool/pkg/adapters/file"
	"github.com/trysourcetool/sourcetool/pkg/adapters/memory"
	"github.com/trysourcetool/sourcetool/pkg/adapters/redis"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/persistence/middleware"
	"github.com/trysourcetool/sourcetool/pkg/ports"
	"github.com/trysourcetool/sourcetool/pkg/session"
)

// transport derives websocket settings from the relay section. Zero values
// keep the defaults.
func transport(cfg config.RelayConfig) websocket.Settings {
	s := websocket.DefaultSettings()
	if cfg.HandshakeTimeout > 0 {
		s.HandshakeTimeout = cfg.HandshakeTimeout
	}
	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	}
	return s
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the snapshot store selected by cfg.Store.Driver, wrapped
// with redaction and encryption when configured.
func openStore(cfg config.Config, logger *slog.Logger) (ports.SessionStore, []session.Option, io.Closer, error) {
	store, opts, closer, err := openDriver(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Store.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(cfg.Store.Redact)
		if err != nil {
			_ = closer.Close()
			return nil, nil, nil, err
		}
		mws = append(mws, mw)
	}
	active, fallback, err := cfg.Store.Keys()
	if err != nil {
		_ = closer.Close()
		return nil, nil, nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			_ = closer.Close()
			return nil, nil, nil, err
		}
		mws = append(mws, mw)
		logger.Info("Session snapshots are encrypted at rest", "fallback_keys", len(fallback))
	}
	return middleware.Chain(store, mws...), opts, closer, nil
}

func openDriver(cfg config.Config, logger *slog.Logger) (ports.SessionStore, []session.Option, io.Closer, error) {
	opts := []session.Option{session.WithLogger(logger)}
	switch cfg.Store.Driver {
	case config.DriverRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Store.TTL),
		)
		opts = append(opts, session.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)))
		logger.Info("Using redis session store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return store, opts, store, nil
	case config.DriverBolt:
		store, err := bolt.Open(cfg.Store.BoltPath, bolt.WithTTL(cfg.Store.TTL))
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Using bolt session store", "path", cfg.Store.BoltPath)
		return store, opts, store, nil
	case config.DriverFile:
		logger.Info("Using file session store", "dir", cfg.Store.Dir)
		return file.New(cfg.Store.Dir), opts, nopCloser{}, nil
	default:
		return memory.NewStore(), opts, nopCloser{}, nil
	}
}
