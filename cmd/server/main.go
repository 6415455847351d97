package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/app"
	"github.com/zapcooking/backend/internal/config"
	"github.com/zapcooking/backend/internal/kv"
	badgerstore "github.com/zapcooking/backend/internal/kv/badger"
	"github.com/zapcooking/backend/internal/kv/memory"
	"github.com/zapcooking/backend/internal/kv/postgres"
	"github.com/zapcooking/backend/internal/lnurl"
	"github.com/zapcooking/backend/internal/logger"
	"github.com/zapcooking/backend/internal/membership"
	"github.com/zapcooking/backend/internal/nip05"
	"github.com/zapcooking/backend/internal/recipegen"
	"github.com/zapcooking/backend/internal/shortlink"
)

func newStore(cfg *config.ServerConfig, log *zap.SugaredLogger) (kv.Store, error) {
	switch {
	case cfg.DatabaseDSN != "":
		log.Infow("using postgres store")
		return postgres.NewPostgresStore(context.Background(), cfg.DatabaseDSN)
	case cfg.BadgerPath != "":
		log.Infow("using badger store", "path", cfg.BadgerPath)
		return badgerstore.NewBadgerStorage(cfg.BadgerPath)
	default:
		log.Warn("no storage configured, falling back to in-memory store")
		return memory.NewMemoryStorage(), nil
	}
}

func run() error {
	cfg, err := config.ParseFlags()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	zlog, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = zlog.Sync()
	}()

	store, err := newStore(cfg, zlog)
	if err != nil {
		return fmt.Errorf("error initializing store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Errorw("error closing store", "err", err)
		}
	}()

	shortlinks := shortlink.NewService(cfg, store, zlog.Named("shortlink"))
	identities := nip05.NewService(store, cfg.RootPubkey)
	members := membership.NewService(
		cfg.PaymentsEnabled,
		cfg.BaseURL,
		store,
		membership.NewStrikeClient(cfg.StrikeAPIURL, cfg.StrikeAPIKey),
		membership.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey),
		membership.NewPantryClient(cfg.MembersAPIURL, cfg.MembersAPIKey),
		identities,
		zlog.Named("membership"),
	)
	proxy := lnurl.NewProxy(cfg.LnurlUpstream, zlog.Named("lnurl"))
	recipes := recipegen.NewService(cfg.AIEnabled, cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, zlog.Named("recipegen"))

	a := app.NewApp(cfg, store, shortlinks, members, identities, proxy, recipes, zlog)
	return a.RunServer()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
