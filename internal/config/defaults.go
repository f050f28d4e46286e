package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppLogPath  = "/data/logs/sinalbot.log"

	defaultBinanceREST    = "https://fapi.binance.com"
	defaultBinanceTimeout = 15
	defaultBinanceRPS     = 10.0

	defaultTradingLeverage    = 10
	defaultTradingNotional    = 10.0
	defaultTradingMarginType  = "ISOLATED"
	defaultTradingMaxOpen     = 10
	defaultTradingMaxLong     = 0
	defaultTradingMaxShort    = 0
	defaultTradingMaxAllowed  = 0.0
	defaultExitTakeProfitPct  = 1.0
	defaultExitPartialFrac    = 0.5
	defaultExitTrailingActPct = 5.0
	defaultExitCallbackRate   = 1.0

	defaultServerAddr  = ":9991"
	defaultStorePath   = "/data/db/sinalbot.db"
	defaultFiltersPath = "configs/symbol_filters.yaml"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Exit.applyDefaults(keys)
	c.Server.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Filters.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		fieldDefault{
			key:   "binance.http_timeout_seconds",
			need:  func() bool { return b.HTTPTimeoutSeconds <= 0 },
			apply: func() { b.HTTPTimeoutSeconds = defaultBinanceTimeout },
		},
		fieldDefault{
			key:   "binance.requests_per_second",
			need:  func() bool { return b.RequestsPerSecond <= 0 },
			apply: func() { b.RequestsPerSecond = defaultBinanceRPS },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("trading.hedge_mode", &t.HedgeMode, true),
		stringFieldDefault("trading.margin_type", &t.MarginType, defaultTradingMarginType),
		fieldDefault{
			key:   "trading.leverage",
			need:  func() bool { return t.Leverage <= 0 },
			apply: func() { t.Leverage = defaultTradingLeverage },
		},
		fieldDefault{
			key:   "trading.max_notional_usdt",
			need:  func() bool { return t.MaxNotionalUSDT <= 0 },
			apply: func() { t.MaxNotionalUSDT = defaultTradingNotional },
		},
		fieldDefault{
			key:   "trading.max_allowed_price",
			need:  func() bool { return t.MaxAllowedPrice < 0 },
			apply: func() { t.MaxAllowedPrice = defaultTradingMaxAllowed },
		},
		fieldDefault{
			key:   "trading.caps.max_open",
			need:  func() bool { return t.Caps.MaxOpen <= 0 },
			apply: func() { t.Caps.MaxOpen = defaultTradingMaxOpen },
		},
		fieldDefault{
			key:   "trading.caps.max_long",
			need:  func() bool { return t.Caps.MaxLong < 0 },
			apply: func() { t.Caps.MaxLong = defaultTradingMaxLong },
		},
		fieldDefault{
			key:   "trading.caps.max_short",
			need:  func() bool { return t.Caps.MaxShort < 0 },
			apply: func() { t.Caps.MaxShort = defaultTradingMaxShort },
		},
	)
	t.MarginType = strings.ToUpper(strings.TrimSpace(t.MarginType))
}

func (e *ExitConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "exit.take_profit_percent",
			need:  func() bool { return e.TakeProfitPercent <= 0 },
			apply: func() { e.TakeProfitPercent = defaultExitTakeProfitPct },
		},
		fieldDefault{
			key:   "exit.partial_fraction",
			need:  func() bool { return e.PartialFraction <= 0 || e.PartialFraction > 1 },
			apply: func() { e.PartialFraction = defaultExitPartialFrac },
		},
		fieldDefault{
			key:   "exit.trailing_activation_percent",
			need:  func() bool { return e.TrailingActivationPercent <= 0 },
			apply: func() { e.TrailingActivationPercent = defaultExitTrailingActPct },
		},
		fieldDefault{
			key:   "exit.trailing_callback_rate",
			need:  func() bool { return e.TrailingCallbackRate <= 0 },
			apply: func() { e.TrailingCallbackRate = defaultExitCallbackRate },
		},
	)
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("server.addr", &s.Addr, defaultServerAddr),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (f *FiltersConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("filters.path", &f.Path, defaultFiltersPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
