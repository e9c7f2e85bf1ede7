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

	"github.com/redis/go-redis/v9"

	"opscore/batch"
	"opscore/cache"
	"opscore/config"
	"opscore/engine"
	"opscore/messaging"
	"opscore/store"
	"opscore/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "opscore.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("opscore", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("opscore: database open (%s)", cfg.Database.Driver)

	// Redis (profile/rollup cache; degrades to SQL-only when unavailable)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("opscore: redis not available (%v), running without cache", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Printf("opscore: redis connected (%s)", cfg.Redis.Address)
		defer redisClient.Close()
	}
	cancel()
	profileCache := cache.New(redisClient, cfg.Redis.CacheTTL)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("opscore: messaging connect failed (%v)", err)
	} else {
		log.Printf("opscore: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Cache:      profileCache,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Event intake (inbound from store devices and the staff app)
	intake := messaging.NewIntakeHandler(db, eng)
	if err := msgClient.Subscribe(cfg.Messaging.EventsTopic, intake.Handle); err != nil {
		log.Printf("opscore: intake subscribe failed: %v", err)
	} else {
		log.Printf("opscore: intake listening on %s", cfg.Messaging.EventsTopic)
	}

	// Outbox drainer (outbound signal notifications)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Daily rollup scheduler
	scheduler := batch.New(eng, cfg.Scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng, scheduler)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("opscore: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("opscore: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("opscore: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("opscore: stopped")
}
