// Package binance implements the exchange gateway over the go-binance
// USDT-M futures SDK.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sinalbot/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

// Gateway implements exchange.Exchange against Binance USDT-M futures.
type Gateway struct {
	cfg     Config
	client  *futures.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Gateway, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	if final.ProxyEnabled {
		wsProxy := final.WSProxyURL
		if wsProxy == "" {
			wsProxy = final.RESTProxyURL
		}
		if wsProxy != "" {
			futures.SetWsProxyUrl(wsProxy)
		}
	}
	return &Gateway{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(final.RequestsPerSecond), final.RequestsPerSecond),
	}, nil
}

func (g *Gateway) Name() string { return "binance-futures" }

func (g *Gateway) wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

func (g *Gateway) CreateOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderRef, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	svc := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(req.Side)).
		PositionSide(futures.PositionSideType(req.PositionSide)).
		Type(futures.OrderType(req.Type)).
		Quantity(formatFloat(req.Quantity))
	switch req.Type {
	case exchange.OrderTypeLimit:
		svc = svc.Price(formatFloat(req.Price)).TimeInForce(futures.TimeInForceTypeGTC)
	case exchange.OrderTypeStopMarket:
		svc = svc.StopPrice(formatFloat(req.StopPrice)).WorkingType(futures.WorkingTypeMarkPrice)
	case exchange.OrderTypeTrailingStopMarket:
		svc = svc.ActivationPrice(formatFloat(req.ActivationPrice)).
			CallbackRate(formatFloat(req.CallbackRate)).
			WorkingType(futures.WorkingTypeMarkPrice)
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("create order %s %s: %w", symbol, req.Type, err)
	}
	return &exchange.OrderRef{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        exchange.OrderStatus(res.Status),
	}, nil
}

func (g *Gateway) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	if err := g.wait(ctx); err != nil {
		return 0, err
	}
	res, err := g.client.NewPremiumIndexService().Symbol(strings.ToUpper(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark price %s: %w", symbol, err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("mark price %s: empty response", symbol)
	}
	price := parseFloat(res[0].MarkPrice)
	if price <= 0 {
		return 0, fmt.Errorf("mark price %s: invalid value %q", symbol, res[0].MarkPrice)
	}
	return price, nil
}

func (g *Gateway) RecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 9
	}
	kls, err := g.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval(strings.ToLower(interval)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}
	out := make([]float64, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, parseFloat(kl.Close))
	}
	return out, nil
}

func (g *Gateway) OpenOrders(ctx context.Context) ([]exchange.OpenOrder, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	orders, err := g.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	out := make([]exchange.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, exchange.OpenOrder{
			Symbol:       o.Symbol,
			PositionSide: exchange.PositionSide(o.PositionSide),
			Type:         exchange.OrderType(o.Type),
			Status:       exchange.OrderStatus(o.Status),
			ReduceOnly:   o.ReduceOnly,
		})
	}
	return out, nil
}

func (g *Gateway) Positions(ctx context.Context) ([]exchange.PositionDelta, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	risks, err := g.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}
	out := make([]exchange.PositionDelta, 0, len(risks))
	for _, p := range risks {
		if p == nil {
			continue
		}
		delta, ok := positionRiskDelta(p)
		if !ok {
			continue
		}
		out = append(out, delta)
	}
	return out, nil
}

func (g *Gateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	_, err := g.client.NewChangeLeverageService().
		Symbol(strings.ToUpper(symbol)).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("change leverage %s: %w", symbol, err)
	}
	return nil
}

func (g *Gateway) SetMarginType(ctx context.Context, symbol, marginType string) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	mt := futures.MarginTypeCrossed
	if strings.EqualFold(marginType, "ISOLATED") {
		mt = futures.MarginTypeIsolated
	}
	if err := g.client.NewChangeMarginTypeService().
		Symbol(strings.ToUpper(symbol)).
		MarginType(mt).
		Do(ctx); err != nil {
		return fmt.Errorf("change margin type %s: %w", symbol, err)
	}
	return nil
}

func (g *Gateway) SetPositionMode(ctx context.Context, hedge bool) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	if err := g.client.NewChangePositionModeService().DualSide(hedge).Do(ctx); err != nil {
		return fmt.Errorf("change position mode: %w", err)
	}
	return nil
}

func (g *Gateway) SymbolFilter(ctx context.Context, symbol string) (exchange.SymbolFilter, error) {
	if err := g.wait(ctx); err != nil {
		return exchange.SymbolFilter{}, err
	}
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return exchange.SymbolFilter{}, fmt.Errorf("exchange info: %w", err)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		var filter exchange.SymbolFilter
		if pf := s.PriceFilter(); pf != nil {
			filter.TickSize = parseFloat(pf.TickSize)
		}
		if lf := s.LotSizeFilter(); lf != nil {
			filter.StepSize = parseFloat(lf.StepSize)
		}
		if filter.TickSize <= 0 || filter.StepSize <= 0 {
			return exchange.SymbolFilter{}, fmt.Errorf("filters incomplete for %s", symbol)
		}
		return filter, nil
	}
	return exchange.SymbolFilter{}, fmt.Errorf("filters not found for %s", symbol)
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

// formatFloat renders numbers the way the futures API expects: plain
// decimal notation, no exponent, no trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
