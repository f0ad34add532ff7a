// Package mock provides an in-memory exchange with deterministic seed data
// for tests and simulation runs. Orders fill instantly at the quoted price
// and balances are adjusted accordingly.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/models"
)

type Client struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	balances map[string]decimal.Decimal
	orders   map[uint64]models.OrderInfo
	nextID   uint64
}

func New() *Client {
	return &Client{
		prices: map[string]decimal.Decimal{
			"BTCUSDT": decimal.NewFromInt(50000),
			"BTCUSDC": decimal.NewFromInt(50025),
			"ETHUSDT": decimal.NewFromInt(3000),
			"ETHUSDC": decimal.RequireFromString("3002.50"),
		},
		balances: map[string]decimal.Decimal{
			"USDT": decimal.NewFromInt(10000),
			"USDC": decimal.NewFromInt(10000),
			"BTC":  decimal.NewFromInt(1),
			"ETH":  decimal.NewFromInt(10),
		},
		orders: make(map[uint64]models.OrderInfo),
		nextID: 1,
	}
}

// UpdatePrice overrides the quoted price for symbol.
func (c *Client) UpdatePrice(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
}

// SetBalance overrides the free balance for asset.
func (c *Client) SetBalance(asset string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[asset] = amount
}

func (c *Client) SymbolInfo(_ context.Context, symbol string) (models.Symbol, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.prices[symbol]; !ok {
		return models.Symbol{}, fmt.Errorf("%w: %s", exchange.ErrSymbolNotFound, symbol)
	}
	base, quote := splitSymbol(symbol)
	return models.Symbol{
		BaseAsset:   base,
		QuoteAsset:  quote,
		MinNotional: decimal.NewFromInt(10),
		MinQty:      decimal.RequireFromString("0.00001"),
		StepSize:    decimal.RequireFromString("0.00001"),
		TickSize:    decimal.RequireFromString("0.01"),
	}, nil
}

func (c *Client) Price(_ context.Context, symbol string) (models.Price, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.prices[symbol]
	if !ok {
		return models.Price{}, fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, symbol)
	}
	return models.Price{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}, nil
}

// OrderBook synthesizes a book around the current price: ten levels per side,
// each one tenth of a percent apart, with size growing away from the touch.
func (c *Client) OrderBook(_ context.Context, symbol string, depth int) (models.OrderBook, error) {
	c.mu.Lock()
	price, ok := c.prices[symbol]
	c.mu.Unlock()
	if !ok {
		return models.OrderBook{}, fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, symbol)
	}
	levels := 10
	if depth > 0 && depth < levels {
		levels = depth
	}
	thousand := decimal.NewFromInt(1000)
	ten := decimal.NewFromInt(10)
	book := models.OrderBook{Symbol: symbol, Timestamp: time.Now().UTC()}
	for i := 1; i <= levels; i++ {
		step := decimal.NewFromInt(int64(i))
		qty := step.Div(ten)
		book.Bids = append(book.Bids, models.BookLevel{
			Price: price.Mul(thousand.Sub(step)).Div(thousand),
			Qty:   qty,
		})
		book.Asks = append(book.Asks, models.BookLevel{
			Price: price.Mul(thousand.Add(step)).Div(thousand),
			Qty:   qty,
		})
	}
	return book, nil
}

func (c *Client) PlaceOrder(_ context.Context, symbol string, side models.Side, qty, limit decimal.Decimal) (models.OrderInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.prices[symbol]
	if !ok {
		return models.OrderInfo{}, fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, symbol)
	}
	if !limit.IsZero() {
		price = limit
	}
	base, quote := splitSymbol(symbol)
	notional := qty.Mul(price)
	switch side {
	case models.SideBuy:
		if c.balances[quote].LessThan(notional) {
			return models.OrderInfo{}, fmt.Errorf("%w: %s", exchange.ErrInsufficientBalance, quote)
		}
		c.balances[quote] = c.balances[quote].Sub(notional)
		c.balances[base] = c.balances[base].Add(qty)
	case models.SideSell:
		if c.balances[base].LessThan(qty) {
			return models.OrderInfo{}, fmt.Errorf("%w: %s", exchange.ErrInsufficientBalance, base)
		}
		c.balances[base] = c.balances[base].Sub(qty)
		c.balances[quote] = c.balances[quote].Add(notional)
	}
	order := models.OrderInfo{
		OrderID:   c.nextID,
		Symbol:    symbol,
		Price:     price,
		Qty:       qty,
		Side:      side,
		Status:    models.OrderFilled,
		Timestamp: time.Now().UTC(),
	}
	c.nextID++
	c.orders[order.OrderID] = order
	return order, nil
}

func (c *Client) OrderStatus(_ context.Context, _ string, orderID uint64) (models.OrderInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[orderID]
	if !ok {
		return models.OrderInfo{}, fmt.Errorf("%w: %d", exchange.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (c *Client) CancelOrder(_ context.Context, _ string, orderID uint64) (models.OrderInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[orderID]
	if !ok {
		return models.OrderInfo{}, fmt.Errorf("%w: %d", exchange.ErrOrderNotFound, orderID)
	}
	if order.Status == models.OrderFilled {
		return models.OrderInfo{}, fmt.Errorf("order %d already filled", orderID)
	}
	order.Status = models.OrderCancelled
	c.orders[orderID] = order
	return order, nil
}

func (c *Client) AccountBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[asset], nil
}

func splitSymbol(symbol string) (base, quote string) {
	for _, q := range []string{"USDT", "USDC"} {
		if strings.HasSuffix(symbol, q) {
			return strings.TrimSuffix(symbol, q), q
		}
	}
	return symbol, ""
}
