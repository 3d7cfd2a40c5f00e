package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/config"
	"github.com/ariefcatur/krstock/internal/events"
	"github.com/ariefcatur/krstock/internal/exchange"
	"github.com/ariefcatur/krstock/internal/httpx"
	"github.com/ariefcatur/krstock/internal/inventory"
	kafkax "github.com/ariefcatur/krstock/internal/kafka"
	"github.com/ariefcatur/krstock/internal/postgres"
	"github.com/ariefcatur/krstock/internal/pricing"
	"github.com/ariefcatur/krstock/internal/redisx"
	"github.com/ariefcatur/krstock/internal/region"
	"github.com/ariefcatur/krstock/internal/stock"
	"github.com/ariefcatur/krstock/internal/storeapi"
	"github.com/ariefcatur/krstock/internal/watchlist"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch list store
	opts := watchlist.Options{Backend: cfg.StoreBackend, Path: cfg.StoreFile}
	if cfg.StoreBackend == watchlist.BackendPostgres {
		db, pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		defer db.Close()
		opts.DB = db
	}
	store, err := watchlist.Open(opts)
	if err != nil {
		logger.Fatal("watch list store", zap.Error(err))
	}

	// Cache & usage ledger: Redis when configured, in-process otherwise
	var backend cache.Backend = cache.NewMemoryBackend()
	var ledger pricing.UsageLedger = pricing.NewMemoryLedger()
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		backend = redisx.NewCache(rdb)
		ledger = redisx.NewUsageLedger(rdb)
	}
	c := cache.New(backend, logger)

	// Static configuration
	dir, err := region.LoadFile(cfg.RegionConfig)
	if err != nil {
		logger.Fatal("store directory", zap.Error(err))
	}
	discounts, err := pricing.LoadCatalog(cfg.DiscountConfig)
	if err != nil {
		logger.Fatal("discount rules", zap.Error(err))
	}

	// Kafka producer
	var pub events.Publisher = events.NopPublisher{}
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
		prod.Start(ctx)
		pub = prod
	} else {
		logger.Info("no kafka brokers configured, events disabled")
	}

	// Services
	api := storeapi.NewClient(cfg.Stock.APIBase, cfg.Stock.Timeout, logger)
	fetcher := stock.NewFetcher(api, stock.Options{
		Timeout:     cfg.Stock.Timeout,
		MaxWorkers:  cfg.Stock.MaxWorkers,
		SerialDelay: cfg.Stock.SerialDelay,
	}, logger)
	wl := watchlist.NewService(store, logger)
	inv := &inventory.Service{
		Watch:       wl,
		Builder:     inventory.NewBuilder(fetcher, dir, cfg.Stock.MaxSKUs, logger),
		Cache:       c,
		Publisher:   pub,
		Directory:   dir,
		SnapshotTTL: cfg.SnapshotTTL,
		ServiceName: cfg.ServiceName,
		Logger:      logger,
	}

	rateClient := &http.Client{Timeout: cfg.Exchange.Timeout}
	rates := exchange.NewProvider(c, cfg.Exchange.TTL, logger,
		&exchange.AccurateSource{URL: cfg.Exchange.AccurateURL, Client: rateClient},
		&exchange.EstimatedSource{BaseURL: cfg.Exchange.EstimatedURL, Client: rateClient},
	)
	ps := &pricing.Service{
		Catalog: discounts,
		Calculator: pricing.NewCalculator(pricing.Policy{
			ExclusivePreTax:  cfg.ExclusivePreTax,
			ExclusiveRewards: cfg.ExclusiveReward,
			ExactPreTax:      cfg.ExactPreTax,
		}),
		Ledger: ledger,
		Rates: pricing.RateSourceFunc(func(ctx context.Context) pricing.Converter {
			return rates.Converter(ctx)
		}),
		Publisher:   pub,
		ServiceName: cfg.ServiceName,
		Logger:      logger,
	}

	// Router & handlers
	router := httpx.NewRouter(60 * time.Second)
	(&httpx.WatchlistHandler{Service: wl}).Register(router)
	(&httpx.InventoryHandler{
		Service:      inv,
		Fetcher:      fetcher,
		Products:     &catalog.Searcher{Source: api, Cache: c, TTL: cfg.ProductTTL},
		BuildTimeout: cfg.Stock.Timeout + 15*time.Second,
	}).Register(router)
	(&httpx.PricingHandler{Service: ps, Exchange: rates}).Register(router)
	(&httpx.CacheHandler{Cache: c}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // tutup producer -> flush & close writer
		cancel()
		prod.WaitClosed()
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger.With(zap.String("service", cfg.ServiceName))
}
