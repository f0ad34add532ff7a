package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestSimulatorMovesPrices(t *testing.T) {
	client := New()
	sim := NewSimulator(client, "BTC", 1.0, 100, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sim.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	usdt, err := client.Price(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	usdc, err := client.Price(context.Background(), "BTCUSDC")
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	one := decimal.NewFromInt(1)
	if usdt.Price.LessThan(one) || usdc.Price.LessThan(one) {
		t.Fatalf("prices fell below the floor: %s / %s", usdt.Price, usdc.Price)
	}
}

func TestSimulatorRequiresSeedPrice(t *testing.T) {
	client := New()
	sim := NewSimulator(client, "XRP", 1.0, 100, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sim.Run(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected seed price error, got %v", err)
	}
}
