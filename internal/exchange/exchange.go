// Package exchange defines the client interface the engine, strategies and
// risk controllers trade through, plus the error kinds shared by all
// implementations.
package exchange

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"stable-arb-bot/internal/models"
)

var (
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderTimeout        = errors.New("order not filled in time")
	ErrBadResponse         = errors.New("malformed exchange response")
)

// Client is the abstract exchange surface. A zero limit price on PlaceOrder
// submits a market order; any other value submits a good-till-cancel limit
// order at that price.
type Client interface {
	SymbolInfo(ctx context.Context, symbol string) (models.Symbol, error)
	Price(ctx context.Context, symbol string) (models.Price, error)
	OrderBook(ctx context.Context, symbol string, depth int) (models.OrderBook, error)
	PlaceOrder(ctx context.Context, symbol string, side models.Side, qty, limit decimal.Decimal) (models.OrderInfo, error)
	OrderStatus(ctx context.Context, symbol string, orderID uint64) (models.OrderInfo, error)
	CancelOrder(ctx context.Context, symbol string, orderID uint64) (models.OrderInfo, error)
	AccountBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}
