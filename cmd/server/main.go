package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/livepoll/internal/bootstrap"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer res.Close()

	store := services.NewPollStore(res.Backend, log)
	if err := store.Start(ctx); err != nil {
		return err
	}
	defer store.Stop()

	gate := services.NewContextAuthGate()
	authService := services.NewAuthService(res.Users, res.Tokens, google.NewVerifier(), cfg.JWTSecret, cfg.GoogleClientID, log)

	handler := http.NewHandler(http.Handlers{
		Auth:  http.NewAuthHandler(authService, cfg.RedirectURL, cfg.CookieDomain, stdhttp.SameSiteLaxMode),
		Polls: http.NewPollHandler(services.NewPollService(res.Backend, store, res.Users, cfg.UpdatePolicy, log), gate),
		Votes: http.NewVoteHandler(services.NewVoteService(res.Backend, store, cfg.UpdatePolicy, log), gate),
		Users: http.NewUserHandler(services.NewUserService(res.Users), gate),
		Feed:  http.NewFeedHandler(store, log),
	}, http.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Tokens:      authService,
		Gate:        gate,
		Logger:      log,
	})

	server := &stdhttp.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", server.Addr, "backend", cfg.Backend, "update_policy", string(cfg.UpdatePolicy))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(context.Background(), "gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
