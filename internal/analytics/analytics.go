// Package analytics builds performance reports from the history store and
// exports them as JSON or CSV.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/history"
)

// TimeRange names a reporting window. Custom ranges carry explicit bounds.
type TimeRange struct {
	Kind  string
	Start time.Time
	End   time.Time
}

const (
	RangeToday      = "today"
	RangeYesterday  = "yesterday"
	RangeLast7Days  = "last7days"
	RangeLast30Days = "last30days"
	RangeThisMonth  = "thismonth"
	RangeLastMonth  = "lastmonth"
	RangeAllTime    = "alltime"
	RangeCustom     = "custom"
)

// ParseTimeRange maps a CLI range name to a TimeRange. start and end are
// only consulted for the custom kind.
func ParseTimeRange(kind string, start, end time.Time) (TimeRange, error) {
	switch kind {
	case RangeToday, RangeYesterday, RangeLast7Days, RangeLast30Days,
		RangeThisMonth, RangeLastMonth, RangeAllTime:
		return TimeRange{Kind: kind}, nil
	case RangeCustom:
		if start.IsZero() || end.IsZero() {
			return TimeRange{}, fmt.Errorf("custom range requires start and end dates")
		}
		if end.Before(start) {
			return TimeRange{}, fmt.Errorf("custom range end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
		}
		return TimeRange{Kind: RangeCustom, Start: start, End: end}, nil
	default:
		return TimeRange{}, fmt.Errorf("unknown time range %q", kind)
	}
}

// Bounds resolves the range to absolute start and end instants.
func (r TimeRange) Bounds() (time.Time, time.Time) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r.Kind {
	case RangeToday:
		return midnight, now
	case RangeYesterday:
		return midnight.AddDate(0, 0, -1), midnight
	case RangeLast7Days:
		return now.AddDate(0, 0, -7), now
	case RangeLast30Days:
		return now.AddDate(0, 0, -30), now
	case RangeThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case RangeLastMonth:
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return thisMonth.AddDate(0, -1, 0), thisMonth
	case RangeCustom:
		return r.Start, r.End
	default: // all time
		return time.Unix(0, 0), now
	}
}

func (r TimeRange) Description() string {
	if r.Kind == RangeCustom {
		return fmt.Sprintf("%s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return r.Kind
}

type PerformanceReport struct {
	Title           string              `json:"title"`
	TimeRange       string              `json:"time_range"`
	GeneratedAt     time.Time           `json:"generated_at"`
	Overview        history.TradeStats  `json:"overview"`
	DailyStats      []history.DailyStat `json:"daily_stats"`
	AssetStats      []history.AssetStat `json:"asset_stats"`
	SuccessRate     float64             `json:"success_rate"`
	ProfitLossRatio float64             `json:"profit_loss_ratio"`
	AvgDailyVolume  decimal.Decimal     `json:"avg_daily_volume"`
	AvgDailyProfit  decimal.Decimal     `json:"avg_daily_profit"`
	BestDay         *history.DailyStat  `json:"best_day,omitempty"`
	WorstDay        *history.DailyStat  `json:"worst_day,omitempty"`
}

type Manager struct {
	store     history.Store
	topAssets int
	log       *zap.Logger
}

func NewManager(store history.Store, topAssets int, log *zap.Logger) *Manager {
	if topAssets <= 0 {
		topAssets = 10
	}
	return &Manager{store: store, topAssets: topAssets, log: log}
}

func (m *Manager) GenerateReport(ctx context.Context, r TimeRange) (*PerformanceReport, error) {
	start, end := r.Bounds()

	overview, err := m.store.OverallStats(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("overall stats: %w", err)
	}
	daily, err := m.store.DailyStats(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	assets, err := m.store.AssetStats(ctx, start, end, m.topAssets)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}

	report := &PerformanceReport{
		Title:       fmt.Sprintf("Arbitrage performance report - %s", r.Description()),
		TimeRange:   r.Description(),
		GeneratedAt: time.Now().UTC(),
		Overview:    overview,
		DailyStats:  daily,
		AssetStats:  assets,
	}

	if overview.TotalTrades > 0 {
		report.SuccessRate = float64(overview.SuccessfulTrades) / float64(overview.TotalTrades) * 100
	}
	if overview.MaxLoss.IsNegative() {
		ratio, _ := overview.MaxProfit.Div(overview.MaxLoss.Abs()).Float64()
		report.ProfitLossRatio = ratio
	}

	daysWithTrades := int64(0)
	totalVolume, totalProfit := decimal.Zero, decimal.Zero
	for i := range daily {
		stat := daily[i]
		if stat.Trades == 0 {
			continue
		}
		daysWithTrades++
		totalVolume = totalVolume.Add(stat.Volume)
		totalProfit = totalProfit.Add(stat.Profit)
		if report.BestDay == nil || stat.Profit.GreaterThan(report.BestDay.Profit) {
			report.BestDay = &daily[i]
		}
		if report.WorstDay == nil || stat.Profit.LessThan(report.WorstDay.Profit) {
			report.WorstDay = &daily[i]
		}
	}
	if daysWithTrades > 0 {
		days := decimal.NewFromInt(daysWithTrades)
		report.AvgDailyVolume = totalVolume.Div(days)
		report.AvgDailyProfit = totalProfit.Div(days)
	}

	m.log.Info("report generated",
		zap.String("range", r.Description()),
		zap.Int64("total_trades", overview.TotalTrades))
	return report, nil
}
