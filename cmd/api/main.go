package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniInventory/internal/config"
	"MiniInventory/internal/discovery"
	"MiniInventory/internal/inventory"
	"MiniInventory/internal/messaging"
	"MiniInventory/pkg/kit"
)

const service = "inventory-api"

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("init store failed", zap.Error(err))
	}
	defer closeStore()

	events, closeEvents, err := buildEvents(cfg)
	if err != nil {
		log.Fatal("init events failed", zap.Error(err))
	}
	defer closeEvents()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &inventory.Server{
		Store:  store,
		Log:    log,
		Events: events,
	}

	h := inventory.NewHandler(s, inventory.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          reg,
		MetricsEnabled:    true,
		MetricsToken:      cfg.MetricsToken,
		WriteLimitPerMin:  cfg.WriteLimitPerMin,
		TrustForwardedFor: cfg.TrustProxy,
	})

	deregister, err := register(cfg)
	if err != nil {
		log.Warn("consul registration failed", zap.Error(err))
	}
	defer deregister()

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func buildStore(ctx context.Context, cfg config.API, log *zap.Logger) (inventory.Store, func(), error) {
	var (
		store   inventory.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store {
	case config.StorePostgres:
		db, err := inventory.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })

		pg := inventory.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		store = pg
	default:
		store = inventory.NewStore()
	}
	log.Info("store ready", zap.String("kind", cfg.Store))

	if cfg.RedisAddr != "" {
		rdb, err := inventory.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })

		store = inventory.NewCachedStore(store, rdb, cfg.CacheTTL, log)
		log.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	return store, closeAll, nil
}

func buildEvents(cfg config.API) (inventory.EventPublisher, func(), error) {
	if cfg.AMQPURL == "" {
		return nil, func() {}, nil
	}

	mq, err := messaging.NewRabbitMQ(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}

	pub, err := inventory.NewQueuePublisher(mq, inventory.ItemEventsQueue)
	if err != nil {
		_ = mq.Close()
		return nil, nil, err
	}
	return pub, func() { _ = mq.Close() }, nil
}

func register(cfg config.API) (func(), error) {
	noop := func() {}
	if cfg.ConsulAddr == "" {
		return noop, nil
	}

	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return noop, fmt.Errorf("port %q: %w", cfg.Port, err)
	}

	c, err := discovery.NewConsul(cfg.ConsulAddr)
	if err != nil {
		return noop, err
	}

	id := fmt.Sprintf("%s-%s-%d", service, cfg.ServiceHost, port)
	err = c.Register(discovery.Registration{
		ID:        id,
		Name:      service,
		Host:      cfg.ServiceHost,
		Port:      port,
		Tags:      []string{"api", "items"},
		HealthURL: fmt.Sprintf("http://%s:%d/healthz", cfg.ServiceHost, port),
	})
	if err != nil {
		return noop, err
	}

	return func() { _ = c.Deregister(id) }, nil
}
