package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floorwatch/config"
	"floorwatch/engine"
	"floorwatch/messaging"
	"floorwatch/mirror"
	"floorwatch/store"
	"floorwatch/www"

	"go.uber.org/zap"
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	configPath := flag.String("config", "floorwatch.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	// Packages log through the standard logger; route it into zap.
	restoreLog := zap.RedirectStdLog(logger)
	defer restoreLog()
	sugar := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *port > 0 {
		cfg.Web.Port = *port
	}

	if *writeConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Fatalf("write config: %v", err)
		}
		sugar.Infof("config written to %s", *configPath)
		return
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		LogFunc:    sugar.Infof,
		Debug:      *debug,
	})
	eng.Start()
	defer eng.Stop()

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rm, err := mirror.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("redis mirror disabled: %v", err)
		} else {
			if err := rm.FlushAll(ctx); err != nil {
				log.Printf("redis mirror flush: %v", err)
			}
			if err := rm.Sync(ctx, eng.Fleet().List()); err != nil {
				log.Printf("redis mirror initial sync: %v", err)
			}
			eng.SetMirror(rm)
			defer rm.Close()
			sugar.Infow("redis mirror enabled", "addr", cfg.Redis.Addr)
		}
		cancel()
	}

	if cfg.MessagingEnabled() {
		msgClient := messaging.NewClient(&cfg.Messaging, cfg.ClientID())
		msgClient.OnConnectionChange = func(connected bool, err error) {
			eng.MessagingStatus(cfg.Messaging.Backend, connected, err)
		}
		defer msgClient.Close()
		if err := msgClient.Connect(); err != nil {
			log.Printf("messaging connect: %v (events stay queued in the outbox)", err)
		}

		// The drainer runs regardless so queued events go out once the broker is reachable.
		drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
		drainer.Start()
		defer drainer.Stop()

		hb := messaging.NewHeartbeater(msgClient, cfg.StationID, cfg.Messaging.SummaryTopic,
			cfg.Messaging.HeartbeatInterval, eng.Fleet().Stats)
		hb.Start()
		defer hb.Stop()

		sugar.Infow("messaging enabled", "backend", cfg.Messaging.Backend,
			"events_topic", cfg.Messaging.EventsTopic, "summary_topic", cfg.Messaging.SummaryTopic)
	}

	router, stopWeb := www.NewRouter(eng)
	defer stopWeb()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infof("FloorWatch listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sugar.Info("Shutting down...")

	// Stop SSE event hub first so long-lived connections close
	stopWeb()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
