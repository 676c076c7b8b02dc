// shoprecd 是推荐服务的 HTTP 守护进程。
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

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/api"
	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/engine"
	"github.com/rushteam/shoprec/rerank"
	"github.com/rushteam/shoprec/store"
	"github.com/rushteam/shoprec/track"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径，缺省用内置默认值")
	debug := flag.Bool("debug", false, "开发模式日志")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal("shoprecd exited", zap.Error(err))
	}
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// 环境变量覆盖，便于容器部署时不改配置文件
	if addr := os.Getenv("SHOPREC_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if secret := os.Getenv("SHOPREC_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if addr := os.Getenv("SHOPREC_REDIS_ADDR"); addr != "" {
		cfg.Store.Kind = "redis"
		cfg.Store.Redis.Addr = addr
	}

	var kv core.KeyValueStore
	switch cfg.Store.Kind {
	case "redis":
		kv, err = store.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
		if err != nil {
			return err
		}
	default:
		kv = store.NewMemoryStore()
	}
	defer kv.Close()
	logger.Info("store ready", zap.String("kind", kv.Name()))

	history := store.NewHistory(kv)
	catalog := store.NewCatalog()
	orders := store.NewOrders()

	c := cache.New(cache.Config{
		Capacity:        cfg.Cache.Capacity,
		PersonalizedTTL: cfg.Cache.PersonalizedTTL.Std(),
		SharedTTL:       cfg.Cache.SharedTTL.Std(),
		BurstWindow:     cfg.Cache.BurstWindow.Std(),
	})

	var boost *rerank.Boost
	if len(cfg.Boost) > 0 {
		boost, err = rerank.NewBoost(cfg.Boost)
		if err != nil {
			return err
		}
		logger.Info("boost rules loaded", zap.Int("rules", len(cfg.Boost)))
	}

	eng := engine.New(engine.Deps{
		Products: catalog,
		Orders:   orders,
		History:  history,
		Views:    history,
		Cache:    c,
		Boost:    boost,
		Logger:   logger,
	})
	ingestor := &track.Ingestor{History: history, Cache: c, Logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := &cache.Sweeper{
		Cache:      c,
		Interval:   cfg.Sweeper.Interval.Std(),
		Grace:      cfg.Sweeper.Grace.Std(),
		StaleAfter: cfg.Sweeper.StaleAfter.Std(),
		Logger:     logger,
	}
	go sweeper.Run(ctx)

	handlers := &api.Handlers{Engine: eng, Ingestor: ingestor, Logger: logger}
	auth := &api.Auth{Secret: []byte(cfg.Auth.JWTSecret)}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(handlers, auth),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
