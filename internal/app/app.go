// Package app wires the gateway, the trader, the executor and the HTTP
// server together and supervises their lifecycles.
package app

import (
	"context"
	"fmt"

	"sinalbot/internal/config"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/store/gormstore"
	"sinalbot/internal/trader"
	httpapi "sinalbot/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	exch       exchange.Exchange
	trader     *trader.Trader
	http       *httpapi.Server
	stream     exchange.UserStream
	auditStore *gormstore.GormStore
}

// NewApp builds the application from its config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts every component and blocks until ctx is canceled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	live := a.cfg.Trading.Enabled && !a.cfg.Trading.DryRun
	if live {
		// answers with an error when the mode is already set
		if err := a.exch.SetPositionMode(ctx, a.cfg.Trading.HedgeMode); err != nil {
			logger.Debugf("set position mode: %v", err)
		}
		if err := a.trader.Bootstrap(ctx); err != nil {
			logger.Warnf("position bootstrap failed, starting empty: %v", err)
		}
	} else {
		logger.Infof("simulation mode: orders are logged, never sent")
	}

	a.trader.Start()
	defer a.trader.Stop()
	if a.auditStore != nil {
		defer a.auditStore.Close()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("http server listening on %s", a.http.Addr())
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.stream != nil {
		group.Go(func() error {
			a.stream.Run(ctx, a.trader.Events())
			return nil
		})
	}
	return group.Wait()
}
