// Package history persists terminal arbitrage results and serves the
// aggregate queries behind the analytics reports. The same SQL works against
// an embedded sqlite file and a postgres server; the driver is chosen from
// the database URL.
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stable-arb-bot/internal/models"
)

// Sink is the write-side interface the engine records results through.
type Sink interface {
	Record(ctx context.Context, result *models.ArbitrageResult) (int64, error)
}

// Store extends Sink with the read-side queries used by analytics.
type Store interface {
	Sink
	OverallStats(ctx context.Context, start, end time.Time) (TradeStats, error)
	DailyStats(ctx context.Context, start, end time.Time) ([]DailyStat, error)
	AssetStats(ctx context.Context, start, end time.Time, limit int) ([]AssetStat, error)
	Close() error
}

type TradeStats struct {
	TotalTrades       int64           `json:"total_trades"`
	SuccessfulTrades  int64           `json:"successful_trades"`
	FailedTrades      int64           `json:"failed_trades"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	AvgProfitPerTrade decimal.Decimal `json:"avg_profit_per_trade"`
	MaxProfit         decimal.Decimal `json:"max_profit"`
	MaxLoss           decimal.Decimal `json:"max_loss"`
	AvgDurationMs     int64           `json:"avg_trade_duration_ms"`
}

type DailyStat struct {
	Date        string          `json:"date"`
	Trades      int64           `json:"trades"`
	Profit      decimal.Decimal `json:"profit"`
	Volume      decimal.Decimal `json:"volume"`
	SuccessRate float64         `json:"success_rate"`
}

type AssetStat struct {
	Asset     string          `json:"asset"`
	Trades    int64           `json:"trades"`
	Profit    decimal.Decimal `json:"profit"`
	Volume    decimal.Decimal `json:"volume"`
	AvgProfit decimal.Decimal `json:"avg_profit"`
}
