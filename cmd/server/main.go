package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inspira/dailyquote/internal/api"
	"github.com/inspira/dailyquote/internal/auth"
	"github.com/inspira/dailyquote/internal/broadcast"
	"github.com/inspira/dailyquote/internal/config"
	"github.com/inspira/dailyquote/internal/pkg/runlock"
	"github.com/inspira/dailyquote/internal/razorpay"
	"github.com/inspira/dailyquote/internal/repository/postgres"
	"github.com/inspira/dailyquote/internal/subscription"
	"github.com/inspira/dailyquote/internal/twilio"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Daily Quote Server starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(3)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	log.Println("Connected to database")

	// Redis is optional. Without it the broadcast run lock degrades to a
	// no-op, which is fine for a single server instance.
	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v, broadcast lock disabled", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Printf("Redis connected: %s (broadcast run lock enabled)", cfg.Redis.Addr)
		}
	} else {
		log.Println("Redis not configured, broadcast run lock disabled")
	}

	profiles := postgres.NewProfileRepo(db)
	quotes := postgres.NewQuoteRepo(db)

	rzpClient := razorpay.NewClient(cfg.Razorpay)
	twClient := twilio.NewClient(cfg.Twilio)

	subs := subscription.NewService(rzpClient, profiles, cfg.Razorpay)
	dispatcher := broadcast.NewDispatcher(quotes, profiles, twClient)

	lock := runlock.New(redisClient, "dailyquote:broadcast:lock", cfg.Broadcast.LockTTL())
	scheduler := broadcast.NewScheduler(dispatcher, lock, cfg.Broadcast)
	if cfg.Broadcast.Enabled {
		scheduler.Start()
		defer scheduler.Stop()
		log.Printf("Broadcast scheduler started (fires %02d:%02d UTC)", cfg.Broadcast.HourUTC, cfg.Broadcast.MinuteUTC)
	} else {
		log.Println("Broadcast scheduler disabled")
	}

	verifier := auth.NewHTTPVerifier(cfg.Auth)
	handlers := api.NewHandlers(subs, dispatcher, twClient)
	handlers.SetScheduler(scheduler)
	server := api.NewServer(handlers, verifier, cfg.Auth.InternalToken)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("API server listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down", sig)
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
