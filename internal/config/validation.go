package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Binance.validate(c.Trading); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Exit.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BinanceConfig) validate(trading TradingConfig) error {
	// live trading without credentials fails at startup, not on the
	// first signal
	if trading.Enabled && !trading.DryRun {
		if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.APISecret) == "" {
			return fmt.Errorf("binance.api_key and binance.api_secret are required when trading.enabled")
		}
	}
	if b.Proxy.Enabled {
		if strings.TrimSpace(b.Proxy.RESTURL) == "" && strings.TrimSpace(b.Proxy.WSURL) == "" {
			return fmt.Errorf("binance.proxy.enabled requires rest_url or ws_url")
		}
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.Leverage < 1 || t.Leverage > 125 {
		return fmt.Errorf("trading.leverage must be between 1 and 125, got %d", t.Leverage)
	}
	if t.MaxNotionalUSDT <= 0 {
		return fmt.Errorf("trading.max_notional_usdt must be positive")
	}
	if t.MaxAllowedPrice < 0 {
		return fmt.Errorf("trading.max_allowed_price cannot be negative")
	}
	switch t.MarginType {
	case "ISOLATED", "CROSSED":
	default:
		return fmt.Errorf("trading.margin_type must be ISOLATED or CROSSED, got %q", t.MarginType)
	}
	if t.Caps.MaxOpen < 0 || t.Caps.MaxLong < 0 || t.Caps.MaxShort < 0 {
		return fmt.Errorf("trading.caps cannot be negative")
	}
	return nil
}

func (e *ExitConfig) validate() error {
	if e.TakeProfitPercent <= 0 {
		return fmt.Errorf("exit.take_profit_percent must be positive")
	}
	if e.PartialFraction <= 0 || e.PartialFraction > 1 {
		return fmt.Errorf("exit.partial_fraction must be in (0, 1]")
	}
	if e.TrailingActivationPercent <= 0 {
		return fmt.Errorf("exit.trailing_activation_percent must be positive")
	}
	// Binance bounds the callback rate to [0.1, 10]
	if e.TrailingCallbackRate < 0.1 || e.TrailingCallbackRate > 10 {
		return fmt.Errorf("exit.trailing_callback_rate must be between 0.1 and 10, got %v", e.TrailingCallbackRate)
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if strings.TrimSpace(s.Addr) == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	return nil
}
