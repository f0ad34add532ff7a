package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/models"
)

func TestPriceAndUpdate(t *testing.T) {
	c := New()
	ctx := context.Background()

	price, err := c.Price(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !price.Price.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected seed price: %s", price.Price)
	}

	c.UpdatePrice("BTCUSDT", decimal.NewFromInt(51000))
	price, err = c.Price(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !price.Price.Equal(decimal.NewFromInt(51000)) {
		t.Fatalf("unexpected updated price: %s", price.Price)
	}

	if _, err := c.Price(ctx, "XRPUSDT"); !errors.Is(err, exchange.ErrPriceUnavailable) {
		t.Fatalf("expected price unavailable, got %v", err)
	}
}

func TestOrderBookShape(t *testing.T) {
	c := New()
	book, err := c.OrderBook(context.Background(), "BTCUSDT", 5)
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if len(book.Bids) != 5 || len(book.Asks) != 5 {
		t.Fatalf("unexpected depth: %d bids, %d asks", len(book.Bids), len(book.Asks))
	}
	if !book.Bids[0].Price.LessThan(book.Asks[0].Price) {
		t.Fatalf("book is crossed: bid %s >= ask %s", book.Bids[0].Price, book.Asks[0].Price)
	}
	for i := 1; i < len(book.Bids); i++ {
		if !book.Bids[i].Price.LessThan(book.Bids[i-1].Price) {
			t.Fatalf("bids not descending at level %d", i)
		}
		if !book.Asks[i].Price.GreaterThan(book.Asks[i-1].Price) {
			t.Fatalf("asks not ascending at level %d", i)
		}
	}
}

func TestPlaceOrderMovesBalances(t *testing.T) {
	c := New()
	ctx := context.Background()

	order, err := c.PlaceOrder(ctx, "BTCUSDT", models.SideBuy,
		decimal.RequireFromString("0.002"), decimal.Zero)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if order.Status != models.OrderFilled {
		t.Fatalf("expected instant fill, got %s", order.Status)
	}

	usdt, _ := c.AccountBalance(ctx, "USDT")
	btc, _ := c.AccountBalance(ctx, "BTC")
	if !usdt.Equal(decimal.NewFromInt(9900)) {
		t.Fatalf("unexpected USDT balance: %s", usdt)
	}
	if !btc.Equal(decimal.RequireFromString("1.002")) {
		t.Fatalf("unexpected BTC balance: %s", btc)
	}
}

func TestPlaceOrderInsufficientBalance(t *testing.T) {
	c := New()
	c.SetBalance("USDT", decimal.NewFromInt(1))

	_, err := c.PlaceOrder(context.Background(), "BTCUSDT", models.SideBuy,
		decimal.RequireFromString("0.002"), decimal.Zero)
	if !errors.Is(err, exchange.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestCancelFilledOrderFails(t *testing.T) {
	c := New()
	ctx := context.Background()

	order, err := c.PlaceOrder(ctx, "BTCUSDT", models.SideBuy,
		decimal.RequireFromString("0.001"), decimal.Zero)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if _, err := c.CancelOrder(ctx, "BTCUSDT", order.OrderID); err == nil {
		t.Fatalf("expected cancel of filled order to fail")
	}
	if _, err := c.CancelOrder(ctx, "BTCUSDT", 999); !errors.Is(err, exchange.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
}

func TestSymbolInfo(t *testing.T) {
	c := New()
	info, err := c.SymbolInfo(context.Background(), "ETHUSDC")
	if err != nil {
		t.Fatalf("symbol info failed: %v", err)
	}
	if info.BaseAsset != "ETH" || info.QuoteAsset != "USDC" {
		t.Fatalf("unexpected symbol parts: %+v", info)
	}
	if _, err := c.SymbolInfo(context.Background(), "XRPUSDT"); !errors.Is(err, exchange.ErrSymbolNotFound) {
		t.Fatalf("expected symbol not found, got %v", err)
	}
}
