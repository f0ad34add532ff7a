package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/exchange/mock"
	"stable-arb-bot/internal/metrics"
	"stable-arb-bot/internal/models"
	"stable-arb-bot/internal/risk"
	"stable-arb-bot/internal/strategy"
)

type memorySink struct {
	results []*models.ArbitrageResult
	err     error
}

func (s *memorySink) Record(_ context.Context, result *models.ArbitrageResult) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.results = append(s.results, result)
	return int64(len(s.results)), nil
}

func newTestEngine(client *mock.Client, strategies []strategy.Strategy, mgr *risk.Manager, sink *memorySink) *Engine {
	return New(Config{
		BaseAsset:      "BTC",
		MaxTradeAmount: decimal.NewFromInt(100),
		CheckInterval:  0,
	}, client, strategies, mgr, sink, metrics.NewNoop(), zap.NewNop())
}

func TestTickExecutesProfitableSpread(t *testing.T) {
	client := mock.New()
	sink := &memorySink{}
	strategies := []strategy.Strategy{
		strategy.NewSimple(decimal.RequireFromString("0.03"), decimal.NewFromInt(100), zap.NewNop()),
	}
	e := newTestEngine(client, strategies, risk.NewManager(zap.NewNop()), sink)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(sink.results))
	}
	result := sink.results[0]
	if result.Status != models.StatusCompleted {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.BuyQuote != "USDT" || result.SellQuote != "USDC" {
		t.Fatalf("unexpected legs: buy %s sell %s", result.BuyQuote, result.SellQuote)
	}
	// 100 USDT at 50000 buys 0.002 BTC; selling at 50025 nets 0.05 USDC.
	if !result.TradeAmount.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("unexpected trade amount: %s", result.TradeAmount)
	}
	if !result.Profit.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("unexpected profit: %s", result.Profit)
	}
	if result.BuyOrderID == 0 || result.SellOrderID == 0 {
		t.Fatalf("expected both order ids set, got %d / %d", result.BuyOrderID, result.SellOrderID)
	}

	ctx := context.Background()
	usdt, _ := client.AccountBalance(ctx, "USDT")
	usdc, _ := client.AccountBalance(ctx, "USDC")
	btc, _ := client.AccountBalance(ctx, "BTC")
	if !usdt.Equal(decimal.NewFromInt(9900)) {
		t.Fatalf("unexpected USDT balance: %s", usdt)
	}
	if !usdc.Equal(decimal.RequireFromString("10100.05")) {
		t.Fatalf("unexpected USDC balance: %s", usdc)
	}
	if !btc.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("base asset position should be flat, got %s", btc)
	}
}

func TestTickFallsBackToSpotSpread(t *testing.T) {
	client := mock.New()
	sink := &memorySink{}
	// A strategy that rejects everything forces the spot fallback.
	strategies := []strategy.Strategy{
		strategy.NewSimple(decimal.NewFromInt(10), decimal.NewFromInt(100), zap.NewNop()),
	}
	e := newTestEngine(client, strategies, risk.NewManager(zap.NewNop()), sink)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected fallback execution, got %d results", len(sink.results))
	}
	if sink.results[0].Status != models.StatusCompleted {
		t.Fatalf("unexpected status: %s", sink.results[0].Status)
	}
}

func TestTickRiskDenialSkipsExecution(t *testing.T) {
	client := mock.New()
	sink := &memorySink{}
	mgr := risk.NewManager(zap.NewNop())
	bl := risk.NewPairBlacklist(zap.NewNop())
	bl.AddBaseAsset("BTC")
	mgr.Add(bl)
	e := newTestEngine(client, nil, mgr, sink)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(sink.results) != 0 {
		t.Fatalf("expected no execution on denial, got %d results", len(sink.results))
	}
	usdt, _ := client.AccountBalance(context.Background(), "USDT")
	if !usdt.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("balances must be untouched on denial, got %s", usdt)
	}
}

func TestTickRecordsFailedExecution(t *testing.T) {
	client := mock.New()
	client.SetBalance("USDT", decimal.Zero)
	sink := &memorySink{}
	e := newTestEngine(client, nil, risk.NewManager(zap.NewNop()), sink)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected failed result recorded, got %d", len(sink.results))
	}
	result := sink.results[0]
	if result.Status != models.StatusFailed {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if !result.Profit.IsZero() || !result.TradeAmount.IsZero() {
		t.Fatalf("failed result must zero monetary fields, got profit %s amount %s",
			result.Profit, result.TradeAmount)
	}
}

func TestTickSinkErrorIsNotFatal(t *testing.T) {
	client := mock.New()
	sink := &memorySink{err: errors.New("disk full")}
	e := newTestEngine(client, nil, risk.NewManager(zap.NewNop()), sink)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("sink errors must not fail the tick: %v", err)
	}
}

type failingRecorder struct {
	risk.Controller
}

func (failingRecorder) RecordResult(context.Context, *models.ArbitrageResult) error {
	return errors.New("state corrupted")
}

func TestTickRiskRecordErrorIsFatal(t *testing.T) {
	client := mock.New()
	mgr := risk.NewManager(zap.NewNop())
	mgr.Add(failingRecorder{Controller: risk.NewPairBlacklist(zap.NewNop())})
	e := newTestEngine(client, nil, mgr, &memorySink{})

	if err := e.Tick(context.Background()); err == nil {
		t.Fatalf("expected risk record error to fail the tick")
	}
}
