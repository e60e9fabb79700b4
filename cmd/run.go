package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hollyrath/scrybot/internal/cards"
	"github.com/hollyrath/scrybot/internal/config"
	"github.com/hollyrath/scrybot/internal/dispatcher"
	"github.com/hollyrath/scrybot/internal/mastodon"
	"github.com/hollyrath/scrybot/internal/media"
	"github.com/hollyrath/scrybot/internal/reconciler"
	"github.com/hollyrath/scrybot/internal/reply"
	"github.com/hollyrath/scrybot/internal/scryfall"
)

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("starting up", "version", Version)

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	masto := mastodon.NewClient(cfg.Instance, cfg.AccessToken)
	self, err := masto.VerifyCredentials(ctx)
	if err != nil {
		slog.Error("credential verification failed", "instance", cfg.Instance, "error", err)
		os.Exit(1)
	}
	slog.Info("credentials verified", "account", self.Acct)

	scry := scryfall.NewClient(scryfall.WithBaseURL(cfg.ScryfallBaseURL))

	disp := dispatcher.New(
		*self,
		masto,
		cards.NewResolver(scry),
		media.NewComposer(scry),
		reply.NewSender(masto),
	)
	disp.SetEventTimeout(cfg.EventTimeout())

	listener := mastodon.NewListener(masto)
	if err := listener.Start(ctx); err != nil {
		slog.Error("stream subscription failed", "error", err)
		os.Exit(1)
	}

	recon := reconciler.New(masto, self.ID, cfg.ReconcileInterval())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		disp.Run(ctx, listener.Events())
	}()
	go func() {
		defer wg.Done()
		recon.Run(ctx)
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	listener.Stop()
	wg.Wait()
}
