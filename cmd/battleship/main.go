package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"battleship/internal/api"
	"battleship/internal/config"
	"battleship/internal/console"
	"battleship/internal/events"
	"battleship/internal/history"
	"battleship/internal/session"
	"battleship/internal/transport"
)

type game interface {
	session.Logic
	ID() string
	Done() <-chan struct{}
}

func main() {
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.Role = os.Args[1]
		if os.Getenv("LOG_FILE") == "" {
			cfg.LogFile = fmt.Sprintf("battleship_%s.log", cfg.Role)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "battleship: %v\nusage: battleship [server|client]\n", err)
		os.Exit(2)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "battleship: cannot open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	gin.DefaultWriter = logFile
	gin.DefaultErrorWriter = logFile
	gin.SetMode(gin.ReleaseMode)

	log.Printf("[Main] Starting battleship %s, field %dx%d, timeout %s", cfg.Role, cfg.FieldWidth, cfg.FieldHeight, cfg.GameTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(256)
	hub := events.NewHub()
	bus.Add(hub)

	var registry *events.RedisRegistry
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
			DB:   0,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Printf("[Main] Redis unavailable, session registry disabled: %v", err)
			redisClient.Close()
		} else {
			log.Println("[Main] Connected to Redis")
			defer redisClient.Close()
			registry = events.NewRedisRegistry(redisClient, 5*time.Minute)
			bus.Add(registry)
		}
	}

	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("battleship-"+cfg.Role))
		if err != nil {
			log.Printf("[Main] NATS unavailable, event publishing disabled: %v", err)
		} else {
			log.Println("[Main] Connected to NATS")
			defer natsConn.Close()
			bus.Add(events.NewNATSSink(natsConn, events.DefaultSubjectPrefix))
		}
	}

	var store *history.Store
	if cfg.DatabaseURL != "" {
		store, err = history.Open(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[Main] Database unavailable, match history disabled: %v", err)
			store = nil
		} else {
			log.Println("[Main] Connected to database")
			defer store.Close()
			bus.Add(store)
		}
	}

	opts := session.Options{
		Width:               cfg.FieldWidth,
		Height:              cfg.FieldHeight,
		Fleet:               cfg.Fleet,
		Timeout:             cfg.GameTimeout,
		WatchdogInterval:    cfg.WatchdogInterval,
		FirstMove:           session.FirstMove(cfg.FirstMove),
		ValidateClientShips: cfg.ValidateClientShips,
		Transport: transport.Config{
			PollTimeout:  cfg.PollInterval,
			WriteTimeout: 10 * time.Second,
		},
		Logger: log.Default(),
	}

	ui := console.New(os.Stdin, os.Stdout, cfg.FieldWidth, cfg.FieldHeight, cfg.Fleet, cfg.PollInterval)

	var g game
	var run func(context.Context) error
	if cfg.Role == "server" {
		opts.Addr = cfg.ListenAddr()
		srv := session.NewServer(opts, ui, bus)
		g, run = srv, srv.Start
	} else {
		opts.Addr = cfg.Addr()
		cli := session.NewClient(opts, ui, bus)
		g, run = cli, cli.Connect
	}

	log.Printf("[Main] Session %s", g.ID())

	busCtx, busCancel := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()
	go hub.Run(ctx)

	var httpServer *api.Server
	if cfg.HTTPPort > 0 {
		httpServer = api.NewServer(g, hub)
		if store != nil {
			httpServer.SetMatchStore(store)
		}
		if registry != nil {
			httpServer.SetSessionLookup(registry)
		}
		httpServer.Setup()
		go func() {
			if err := httpServer.Run(fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
				log.Printf("[Main] %v", err)
			}
		}()
	}

	// Process exit notifies the opponent
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("[Main] Received %s, shutting down", sig)
			g.Shutdown()
		case <-g.Done():
		}
	}()

	go func() {
		if err := run(ctx); err != nil {
			log.Printf("[Main] %s stopped: %v", cfg.Role, err)
		}
	}()

	ui.Run(ctx, g)
	g.Shutdown()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] HTTP shutdown: %v", err)
		}
		shutdownCancel()
	}

	busCancel()
	<-busDone
	if n := bus.Dropped(); n > 0 {
		log.Printf("[Main] %d events dropped", n)
	}
	log.Println("[Main] Stopped")
}
