package filters

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fileConfig maps the symbol_filters yaml file. Grid sizes are strings
// so the file can state the exact exchange notation ("0.0010").
type fileConfig struct {
	SymbolFilters map[string]fileEntry `yaml:"symbol_filters"`
}

type fileEntry struct {
	TickSize string `yaml:"tick_size"`
	StepSize string `yaml:"step_size"`
}

func loadStaticTable(path string) (map[string]exchange.SymbolFilter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbol filter table failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse symbol filter table failed: %w", err)
	}
	table := make(map[string]exchange.SymbolFilter, len(cfg.SymbolFilters))
	for symbol, entry := range cfg.SymbolFilters {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		tick := parseGrid(entry.TickSize)
		step := parseGrid(entry.StepSize)
		if tick <= 0 || step <= 0 {
			return nil, fmt.Errorf("symbol filter table: invalid grids for %s", symbol)
		}
		table[symbol] = exchange.SymbolFilter{TickSize: tick, StepSize: step}
	}
	return table, nil
}

// watchStaticTable reloads the table when the file changes, keeping the
// running process in sync with hand edits.
func (c *Cache) watchStaticTable(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("symbol filter table watch unavailable: %v", err)
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		table, err := loadStaticTable(path)
		if err != nil {
			logger.Errorf("symbol filter table reload failed: %v", err)
			return
		}
		c.replaceStatic(table)
		logger.Infof("symbol filter table reloaded: %d instruments", len(table))
	})
	v.WatchConfig()
}

func parseGrid(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
