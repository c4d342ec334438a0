package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
	"github.com/Tarquiniy/telegram-auth-bridge/bridge/sessionrepo"
	"github.com/Tarquiniy/telegram-auth-bridge/internal/config"
	"github.com/Tarquiniy/telegram-auth-bridge/provider"
	"github.com/Tarquiniy/telegram-auth-bridge/server"
	"github.com/Tarquiniy/telegram-auth-bridge/telegram"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	bridgeService, cleanup, err := buildBridge(c)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(c, bridgeService)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildBridge wires the bridge service from configuration. Missing
// credentials degrade the corresponding dependency instead of failing
// startup; only an unreachable database is fatal.
func buildBridge(c config.Config) (*bridge.Service, func(), error) {
	noop := func() {}

	verifier := telegram.NewVerifier(c.GetBotToken())
	if !verifier.Configured() {
		zlog.Warn().Msg("TELEGRAM_BOT_TOKEN is not set; widget verification will reject everything")
	}
	if c.GetWebhookSecret() == "" {
		zlog.Warn().Msg("TELEGRAM_WEBHOOK_SECRET is not set; inbound webhook calls are unauthenticated")
	}

	var issuer bridge.LinkIssuer
	if client, err := provider.New(c.GetProviderBaseURL(), c.GetProviderServiceKey(), c.GetProviderJWTSecret()); err != nil {
		zlog.Warn().Err(err).Msg("identity provider disabled")
	} else {
		issuer = client
	}

	bot := telegram.NewBot(c.GetBotToken())

	cleanup := noop
	var repos bridge.Repos
	if dsn := c.GetDatabaseDSN(); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := sessionrepo.Connect(ctx, dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("connect session store: %w", err)
		}
		cleanup = pool.Close
		repos = bridge.Repos{
			Sessions: sessionrepo.NewPostgres(pool),
			Profiles: sessionrepo.NewPostgresProfiles(pool),
		}
	} else {
		zlog.Info().Msg("DATABASE_DSN is not set; using in-memory session store")
		repos = bridge.Repos{
			Sessions: sessionrepo.NewInMemory(c.GetTicketTTL()),
			Profiles: sessionrepo.NewInMemoryProfiles(),
		}
	}

	bridgeService, err := bridge.NewService(repos, verifier, issuer, bot, c)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("bridge.NewService: %w", err)
	}
	return bridgeService, cleanup, nil
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
