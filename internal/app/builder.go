package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"sinalbot/internal/config"
	"sinalbot/internal/executor"
	"sinalbot/internal/filters"
	"sinalbot/internal/gateway/binance"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/store"
	"sinalbot/internal/store/gormstore"
	"sinalbot/internal/strategy/exit"
	"sinalbot/internal/trader"
	httpapi "sinalbot/internal/transport/http"
)

// AppBuilder assembles the application from its config.
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

func (b *AppBuilder) Build(_ context.Context) (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	gw, err := binance.New(binance.Config{
		APIKey:            cfg.Binance.APIKey,
		APISecret:         cfg.Binance.APISecret,
		RESTBaseURL:       cfg.Binance.RESTBaseURL,
		HTTPTimeout:       time.Duration(cfg.Binance.HTTPTimeoutSeconds) * time.Second,
		ProxyEnabled:      cfg.Binance.Proxy.Enabled,
		RESTProxyURL:      cfg.Binance.Proxy.RESTURL,
		WSProxyURL:        cfg.Binance.Proxy.WSURL,
		RequestsPerSecond: int(cfg.Binance.RequestsPerSecond),
	})
	if err != nil {
		return nil, fmt.Errorf("binance gateway: %w", err)
	}

	filtersPath := strings.TrimSpace(cfg.Filters.Path)
	if filtersPath != "" {
		if _, err := os.Stat(filtersPath); err != nil {
			logger.Warnf("symbol filter table %s not found, relying on the exchange", filtersPath)
			filtersPath = ""
		}
	}
	fc, err := filters.NewCache(filtersPath, gw)
	if err != nil {
		return nil, fmt.Errorf("symbol filters: %w", err)
	}

	var audit store.Recorder
	var auditStore *gormstore.GormStore
	if strings.TrimSpace(cfg.Store.Path) != "" {
		auditStore, err = gormstore.NewGormStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		audit = auditStore
	}

	tr := trader.New(gw, fc, exit.Params{
		TakeProfitPercent:         cfg.Exit.TakeProfitPercent,
		PartialFraction:           cfg.Exit.PartialFraction,
		TrailingActivationPercent: cfg.Exit.TrailingActivationPercent,
		TrailingCallbackRate:      cfg.Exit.TrailingCallbackRate,
	}, audit)

	exec := executor.New(gw, fc, tr, audit, executor.Config{
		Enabled:         cfg.Trading.Enabled,
		DryRun:          cfg.Trading.DryRun,
		Leverage:        cfg.Trading.Leverage,
		MaxNotionalUSDT: cfg.Trading.MaxNotionalUSDT,
		MaxAllowedPrice: cfg.Trading.MaxAllowedPrice,
		MarginType:      cfg.Trading.MarginType,
		Caps: executor.Caps{
			MaxOpen:  cfg.Trading.Caps.MaxOpen,
			MaxLong:  cfg.Trading.Caps.MaxLong,
			MaxShort: cfg.Trading.Caps.MaxShort,
		},
	})

	srv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:          cfg.Server.Addr,
		AuthToken:     cfg.Server.AuthToken,
		SymbolAllowed: cfg.Server.SymbolAllowed,
		Signals:       exec,
		Positions:     tr,
		Events:        audit,
	})
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	var stream exchange.UserStream
	if cfg.Trading.Enabled && !cfg.Trading.DryRun {
		stream = binance.NewStream(gw)
	}

	return &App{
		cfg:        cfg,
		exch:       gw,
		trader:     tr,
		http:       srv,
		stream:     stream,
		auditStore: auditStore,
	}, nil
}
