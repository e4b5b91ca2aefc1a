package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/martinpz/impostor/internal/game"
	"github.com/martinpz/impostor/internal/randutil"
	"github.com/martinpz/impostor/internal/server"
)

var CLI struct {
	Config     string `short:"c" default:"impostor.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" help:"host:port to bind to (overrides config)"`
	LogLevel   string `short:"l" help:"Log level: debug, info, warn, error (overrides config)"`
	Debug      bool   `short:"d" help:"Enable debug logging"`
	BotDelayMs int    `help:"Milliseconds bots wait before voting (overrides config)"`
	Seed       *int64 `help:"Deterministic RNG seed (optional)"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("impostor"),
		kong.Description("WebSocket server for the impostor word game"),
		kong.UsageOnError(),
	)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		host, portStr, err := net.SplitHostPort(CLI.Addr)
		if err != nil {
			fmt.Printf("Invalid addr %q: %v\n", CLI.Addr, err)
			kctx.Exit(1)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Printf("Invalid port %q: %v\n", portStr, err)
			kctx.Exit(1)
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if CLI.BotDelayMs > 0 {
		cfg.Server.BotDelayMs = CLI.BotDelayMs
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	rng, seed := randutil.FromSeedOrTime(CLI.Seed)
	if CLI.Seed != nil {
		logger.Info("Using deterministic seed", "seed", seed)
	}

	bank, err := cfg.WordBank()
	if err != nil {
		fmt.Printf("Invalid word bank: %v\n", err)
		kctx.Exit(1)
	}

	logger.Info("Starting Impostor server",
		"addr", cfg.ListenAddress(),
		"categories", len(bank.Categories()),
		"botDelay", cfg.BotDelay())

	clock := quartz.NewReal()
	registry := game.NewRegistry(logger, rng, bank, clock)
	wsServer := server.NewServer(cfg.ListenAddress(), logger)
	gameService := server.NewGameService(registry, wsServer, clock, cfg.BotDelay(), logger)
	wsServer.SetGameService(gameService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := wsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
