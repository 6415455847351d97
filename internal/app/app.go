// Package app wires the HTTP surface: short links, payments, NIP-05
// identity, the LNURL proxy and recipe generation.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/config"
	"github.com/zapcooking/backend/internal/kv"
	"github.com/zapcooking/backend/internal/lnurl"
	"github.com/zapcooking/backend/internal/membership"
	"github.com/zapcooking/backend/internal/nip05"
	"github.com/zapcooking/backend/internal/recipegen"
	"github.com/zapcooking/backend/internal/shortlink"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.ServerConfig
	store      kv.Store
	shortlinks *shortlink.Service
	members    *membership.Service
	identities *nip05.Service
	lnurlProxy *lnurl.Proxy
	recipes    *recipegen.Service
	logger     *zap.SugaredLogger
}

func NewApp(
	config *config.ServerConfig,
	store kv.Store,
	shortlinks *shortlink.Service,
	members *membership.Service,
	identities *nip05.Service,
	lnurlProxy *lnurl.Proxy,
	recipes *recipegen.Service,
	logger *zap.SugaredLogger,
) *App {
	return &App{
		config:     config,
		store:      store,
		shortlinks: shortlinks,
		members:    members,
		identities: identities,
		lnurlProxy: lnurlProxy,
		recipes:    recipes,
		logger:     logger,
	}
}

// RunServer serves until SIGINT/SIGTERM, then drains connections.
func (a *App) RunServer() error {
	router, err := a.SetupRouter()
	if err != nil {
		return fmt.Errorf("error setting up router: %w", err)
	}

	srv := &http.Server{
		Addr:    a.config.RunAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infow("starting server", "addr", a.config.RunAddr, "https", a.config.EnableHTTPS)

		var err error
		if a.config.EnableHTTPS {
			if err = CreateCertificates(a.logger); err == nil {
				err = srv.ListenAndServeTLS(certPath, keyPath)
			}
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	return nil
}
