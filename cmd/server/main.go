package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-browser-auth/internal/config"
	"github.com/jrsteele09/go-browser-auth/server"
	"github.com/jrsteele09/go-browser-auth/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithTimeout(context.Background(), c.GetHTTPTimeout())
	client, err := server.NewOAuthClient(ctx, c)
	cancel()
	if err != nil {
		return err
	}

	upstream, err := server.NewUpstreamProxy(c.GetUpstreamURL())
	if err != nil {
		return err
	}

	secret, err := sessionSecret(c)
	if err != nil {
		return err
	}

	sessionRepo, closeRepo, err := newSessionRepo(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	handler, err := server.New(c, client, sessionRepo, secret, upstream)
	if err != nil {
		return err
	}

	stopCleanup := make(chan struct{})
	go expireSessions(sessionRepo, stopCleanup)
	defer close(stopCleanup)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// sessionSecret returns the configured secret or a random one. A random secret
// invalidates every session cookie when the process restarts.
func sessionSecret(c config.SecurityConfig) ([]byte, error) {
	if secret := c.GetSessionSecret(); secret != "" {
		return []byte(secret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}
	log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	return secret, nil
}

// newSessionRepo opens the configured session store. The returned func releases it.
func newSessionRepo(c config.SessionStoreConfig) (sessions.Repo, func(), error) {
	if c.GetSessionStore() != config.SessionStoreRedis {
		return sessions.NewInMemoryRepo(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("sessions stored in redis")
	return sessions.NewRedisRepo(client), func() { _ = client.Close() }, nil
}

func expireSessions(repo sessions.Repo, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := repo.DeleteExpired(now); err != nil {
				log.Err(err).Msg("failed to delete expired sessions")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
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
