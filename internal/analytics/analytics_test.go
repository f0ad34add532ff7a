package analytics

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/history"
	"stable-arb-bot/internal/models"
)

type stubStore struct {
	overall history.TradeStats
	daily   []history.DailyStat
	assets  []history.AssetStat
}

func (s *stubStore) Record(context.Context, *models.ArbitrageResult) (int64, error) { return 0, nil }

func (s *stubStore) OverallStats(context.Context, time.Time, time.Time) (history.TradeStats, error) {
	return s.overall, nil
}

func (s *stubStore) DailyStats(context.Context, time.Time, time.Time) ([]history.DailyStat, error) {
	return s.daily, nil
}

func (s *stubStore) AssetStats(context.Context, time.Time, time.Time, int) ([]history.AssetStat, error) {
	return s.assets, nil
}

func (s *stubStore) Close() error { return nil }

func testReport(t *testing.T) *PerformanceReport {
	t.Helper()
	store := &stubStore{
		overall: history.TradeStats{
			TotalTrades:      10,
			SuccessfulTrades: 8,
			FailedTrades:     2,
			TotalProfit:      decimal.RequireFromString("1.20"),
			TotalVolume:      decimal.RequireFromString("0.02"),
			MaxProfit:        decimal.RequireFromString("0.50"),
			MaxLoss:          decimal.RequireFromString("-0.25"),
		},
		daily: []history.DailyStat{
			{Date: "2026-08-27", Trades: 4, Profit: decimal.RequireFromString("0.90"), Volume: decimal.RequireFromString("0.008"), SuccessRate: 100},
			{Date: "2026-08-28", Trades: 6, Profit: decimal.RequireFromString("0.30"), Volume: decimal.RequireFromString("0.012"), SuccessRate: 66.7},
		},
		assets: []history.AssetStat{
			{Asset: "BTC", Trades: 10, Profit: decimal.RequireFromString("1.20")},
		},
	}
	report, err := NewManager(store, 10, zap.NewNop()).GenerateReport(context.Background(), TimeRange{Kind: RangeLast7Days})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return report
}

func TestGenerateReportDerivedFields(t *testing.T) {
	report := testReport(t)

	if report.SuccessRate != 80 {
		t.Fatalf("unexpected success rate: %v", report.SuccessRate)
	}
	if report.ProfitLossRatio != 2 {
		t.Fatalf("unexpected profit/loss ratio: %v", report.ProfitLossRatio)
	}
	if report.BestDay == nil || report.BestDay.Date != "2026-08-27" {
		t.Fatalf("unexpected best day: %+v", report.BestDay)
	}
	if report.WorstDay == nil || report.WorstDay.Date != "2026-08-28" {
		t.Fatalf("unexpected worst day: %+v", report.WorstDay)
	}
	if !report.AvgDailyProfit.Equal(decimal.RequireFromString("0.6")) {
		t.Fatalf("unexpected avg daily profit: %s", report.AvgDailyProfit)
	}
	if !report.AvgDailyVolume.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("unexpected avg daily volume: %s", report.AvgDailyVolume)
	}
}

func TestParseTimeRange(t *testing.T) {
	if _, err := ParseTimeRange("fortnight", time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for unknown range")
	}
	if _, err := ParseTimeRange(RangeCustom, time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for custom range without bounds")
	}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	if _, err := ParseTimeRange(RangeCustom, end, start); err == nil {
		t.Fatalf("expected error for inverted custom range")
	}
	r, err := ParseTimeRange(RangeCustom, start, end)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	gotStart, gotEnd := r.Bounds()
	if !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Fatalf("unexpected bounds: %s - %s", gotStart, gotEnd)
	}
}

func TestBoundsOrdering(t *testing.T) {
	for _, kind := range []string{
		RangeToday, RangeYesterday, RangeLast7Days, RangeLast30Days,
		RangeThisMonth, RangeLastMonth, RangeAllTime,
	} {
		r, err := ParseTimeRange(kind, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("parse %s failed: %v", kind, err)
		}
		start, end := r.Bounds()
		if !start.Before(end) {
			t.Fatalf("%s: start %s not before end %s", kind, start, end)
		}
	}
}

func TestExportJSON(t *testing.T) {
	report := testReport(t)
	dir := t.TempDir()

	path, err := ExportJSON(report, dir)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var decoded PerformanceReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("exported report is not valid JSON: %v", err)
	}
	if decoded.Overview.TotalTrades != 10 {
		t.Fatalf("unexpected decoded overview: %+v", decoded.Overview)
	}
}

func TestExportCSV(t *testing.T) {
	report := testReport(t)
	dir := t.TempDir()

	if err := ExportCSV(report, dir); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	for _, name := range []string{"overview.csv", "daily_stats.csv", "asset_stats.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}
