package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fornalha/pizzaria-orders/internal/catalog"
	"github.com/fornalha/pizzaria-orders/internal/config"
	"github.com/fornalha/pizzaria-orders/internal/httpx"
	"github.com/fornalha/pizzaria-orders/internal/hub"
	"github.com/fornalha/pizzaria-orders/internal/metrics"
	"github.com/fornalha/pizzaria-orders/internal/mongostore"
	"github.com/fornalha/pizzaria-orders/internal/notify"
	"github.com/fornalha/pizzaria-orders/internal/orders"
	"github.com/fornalha/pizzaria-orders/internal/redisx"
	"github.com/fornalha/pizzaria-orders/internal/schedule"
)

const pingInterval = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("bad timezone", "tz", cfg.Timezone, "err", err)
		os.Exit(1)
	}
	eval := schedule.NewEvaluator(loc)

	snap, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error("catalog load failed", "path", cfg.CatalogPath, "err", err)
		os.Exit(1)
	}

	hours, err := config.NewHoursProvider(cfg.HoursPath, log)
	if err != nil {
		log.Error("business hours load failed", "path", cfg.HoursPath, "err", err)
		os.Exit(1)
	}
	if err := hours.Watch(ctx); err != nil {
		log.Warn("business hours watcher unavailable, config is static", "err", err)
	}

	// Stores
	store, mongoClient, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB, mongostore.DefaultCollection)
	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Metrics + event hub; the hub is constructed once here and passed
	// down explicitly, there is no package-level registry.
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := hub.New(32, log)
	h.SetDropHook(func(string) { m.SubscriberDrops.Inc() })

	// Push gateway bridge
	gw := notify.NewGateway(cfg.KafkaBrokers, cfg.ServiceName, 256, log)
	gw.Start(ctx)

	svc := orders.NewService(store, eval, hours.Current, func() *catalog.Snapshot { return snap }, h, gw, log)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Error("upload dir", "path", cfg.UploadDir, "err", err)
		os.Exit(1)
	}

	router := httpx.NewRouter(reg)
	router.Group(func(r chi.Router) {
		r.Use(httpx.WithTimeout(15 * time.Second))
		oh := &httpx.OrdersHandler{Service: svc, Redis: rdb, Metrics: m, Eval: eval, Hours: hours.Current}
		oh.Register(r)
		uh := &httpx.UploadsHandler{Service: svc, Dir: cfg.UploadDir, Log: log}
		uh.Register(r)
	})
	// The stream outlives any request timeout.
	eh := &httpx.EventsHandler{Hub: h, Metrics: m, Log: log}
	eh.Register(router)

	// Keep-alive pings so idle streams survive proxies.
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.PingAll()
			}
		}
	}()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	cancel()        // stops watcher, ping loop, gateway loop
	gw.WaitClosed() // drain queued notifications
}
