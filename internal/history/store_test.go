package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func resultAt(t *testing.T, store *SQLStore, baseAsset, profit, amount string, status models.ArbitrageStatus, start time.Time) {
	t.Helper()
	result := &models.ArbitrageResult{
		BaseAsset:        baseAsset,
		BuyQuote:         "USDT",
		SellQuote:        "USDC",
		BuyPrice:         decimal.NewFromInt(50000),
		SellPrice:        decimal.NewFromInt(50025),
		TradeAmount:      decimal.RequireFromString(amount),
		Profit:           decimal.RequireFromString(profit),
		ProfitPercentage: decimal.RequireFromString("0.05"),
		BuyOrderID:       1,
		SellOrderID:      2,
		Status:           status,
		StartTime:        start,
		EndTime:          start.Add(2 * time.Second),
	}
	if _, err := store.Record(context.Background(), result); err != nil {
		t.Fatalf("record failed: %v", err)
	}
}

func TestRecordReturnsSequentialIDs(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	result := &models.ArbitrageResult{
		BaseAsset: "BTC", BuyQuote: "USDT", SellQuote: "USDC",
		Status: models.StatusCompleted, StartTime: now, EndTime: now,
	}
	id1, err := store.Record(context.Background(), result)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	id2, err := store.Record(context.Background(), result)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", id1, id2)
	}
}

func TestOverallStats(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	resultAt(t, store, "BTC", "0.05", "0.002", models.StatusCompleted, now)
	resultAt(t, store, "BTC", "-0.02", "0.002", models.StatusCompleted, now)
	resultAt(t, store, "BTC", "0", "0", models.StatusFailed, now)

	stats, err := store.OverallStats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("overall stats failed: %v", err)
	}
	if stats.TotalTrades != 3 || stats.SuccessfulTrades != 2 || stats.FailedTrades != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if !stats.TotalProfit.Equal(decimal.RequireFromString("0.03")) {
		t.Fatalf("unexpected total profit: %s", stats.TotalProfit)
	}
	if !stats.MaxProfit.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("unexpected max profit: %s", stats.MaxProfit)
	}
	if !stats.MaxLoss.Equal(decimal.RequireFromString("-0.02")) {
		t.Fatalf("unexpected max loss: %s", stats.MaxLoss)
	}
	if !stats.AvgProfitPerTrade.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("unexpected avg profit: %s", stats.AvgProfitPerTrade)
	}
	if stats.AvgDurationMs != 2000 {
		t.Fatalf("unexpected avg duration: %d", stats.AvgDurationMs)
	}
}

func TestStatsRespectTimeRange(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	resultAt(t, store, "BTC", "0.05", "0.002", models.StatusCompleted, now.Add(-48*time.Hour))
	resultAt(t, store, "BTC", "0.07", "0.002", models.StatusCompleted, now)

	stats, err := store.OverallStats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("overall stats failed: %v", err)
	}
	if stats.TotalTrades != 1 {
		t.Fatalf("expected only the in-range trade, got %d", stats.TotalTrades)
	}
	if !stats.TotalProfit.Equal(decimal.RequireFromString("0.07")) {
		t.Fatalf("unexpected profit: %s", stats.TotalProfit)
	}
}

func TestDailyStats(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)

	resultAt(t, store, "BTC", "0.05", "0.002", models.StatusCompleted, yesterday)
	resultAt(t, store, "BTC", "0.03", "0.002", models.StatusCompleted, now)
	resultAt(t, store, "BTC", "0", "0", models.StatusFailed, now)

	daily, err := store.DailyStats(context.Background(), now.Add(-48*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("daily stats failed: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected two days, got %d", len(daily))
	}
	if daily[0].Date != yesterday.Format("2006-01-02") {
		t.Fatalf("expected ascending date order, got %s first", daily[0].Date)
	}
	today := daily[1]
	if today.Trades != 2 || today.SuccessRate != 50 {
		t.Fatalf("unexpected today stats: %+v", today)
	}
}

func TestAssetStatsRankedAndLimited(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	resultAt(t, store, "BTC", "0.05", "0.002", models.StatusCompleted, now)
	resultAt(t, store, "ETH", "0.30", "0.1", models.StatusCompleted, now)
	resultAt(t, store, "SOL", "0.10", "1", models.StatusCompleted, now)

	assets, err := store.AssetStats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("asset stats failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(assets))
	}
	if assets[0].Asset != "ETH" || assets[1].Asset != "SOL" {
		t.Fatalf("expected ranking by profit, got %s then %s", assets[0].Asset, assets[1].Asset)
	}
	if !assets[0].AvgProfit.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("unexpected avg profit: %s", assets[0].AvgProfit)
	}
}
