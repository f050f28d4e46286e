package config

import "strings"

// Config is the bot's main configuration carrier.
type Config struct {
	App     AppConfig     `toml:"app"`
	Binance BinanceConfig `toml:"binance"`
	Trading TradingConfig `toml:"trading"`
	Exit    ExitConfig    `toml:"exit"`
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Filters FiltersConfig `toml:"filters"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// BinanceConfig describes the exchange connection.
type BinanceConfig struct {
	APIKey             string      `toml:"api_key"`
	APISecret          string      `toml:"api_secret"`
	RESTBaseURL        string      `toml:"rest_base_url"`
	HTTPTimeoutSeconds int         `toml:"http_timeout_seconds"`
	RequestsPerSecond  float64     `toml:"requests_per_second"`
	Proxy              ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
	WSURL   string `toml:"ws_url"`
}

// TradingConfig holds the entry-side constants.
type TradingConfig struct {
	Enabled         bool       `toml:"enabled"`
	DryRun          bool       `toml:"dry_run"`
	Leverage        int        `toml:"leverage"`
	MaxNotionalUSDT float64    `toml:"max_notional_usdt"`
	MaxAllowedPrice float64    `toml:"max_allowed_price"`
	MarginType      string     `toml:"margin_type"`
	HedgeMode       bool       `toml:"hedge_mode"`
	Caps            CapsConfig `toml:"caps"`
}

type CapsConfig struct {
	MaxOpen  int `toml:"max_open"`
	MaxLong  int `toml:"max_long"`
	MaxShort int `toml:"max_short"`
}

// ExitConfig holds the exit-machine constants, percentages in human
// notation (1.0 means 1%).
type ExitConfig struct {
	TakeProfitPercent         float64 `toml:"take_profit_percent"`
	PartialFraction           float64 `toml:"partial_fraction"`
	TrailingActivationPercent float64 `toml:"trailing_activation_percent"`
	TrailingCallbackRate      float64 `toml:"trailing_callback_rate"`
}

// ServerConfig describes the signal webhook listener.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AuthToken      string   `toml:"auth_token"`
	AllowedSymbols []string `toml:"allowed_symbols"`
}

// SymbolAllowed reports whether the webhook accepts signals for the
// symbol. An empty allow-list accepts everything.
func (s ServerConfig) SymbolAllowed(symbol string) bool {
	if len(s.AllowedSymbols) == 0 {
		return true
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, allowed := range s.AllowedSymbols {
		if strings.ToUpper(strings.TrimSpace(allowed)) == symbol {
			return true
		}
	}
	return false
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type FiltersConfig struct {
	Path string `toml:"path"`
}

// keySet tracks the field paths explicitly set in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
