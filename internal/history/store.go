package history

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"stable-arb-bot/internal/models"
)

// SQLStore implements Store on either sqlite or postgres. Monetary values
// are stored as decimal strings to avoid floating-point drift; aggregates
// are computed over the fetched rows rather than in SQL so both engines
// behave identically.
type SQLStore struct {
	db       *sql.DB
	postgres bool
	log      *zap.Logger
}

// Open connects to the database named by dbURL. postgres:// and
// postgresql:// URLs use the pgx driver; anything else is treated as a
// sqlite file path.
func Open(dbURL string, log *zap.Logger) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
		pg  = strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://")
	)
	if pg {
		db, err = sql.Open("pgx", dbURL)
	} else {
		db, err = sql.Open("sqlite", dbURL)
	}
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	s := &SQLStore{db: db, postgres: pg, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("history store ready", zap.Bool("postgres", pg))
	return s, nil
}

func (s *SQLStore) migrate() error {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		idCol = "id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
	}
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS arbitrage_history (
	%s,
	base_asset TEXT NOT NULL,
	buy_quote TEXT NOT NULL,
	sell_quote TEXT NOT NULL,
	buy_price TEXT NOT NULL,
	sell_price TEXT NOT NULL,
	trade_amount TEXT NOT NULL,
	profit TEXT NOT NULL,
	profit_percentage TEXT NOT NULL,
	buy_order_id BIGINT NOT NULL,
	sell_order_id BIGINT NOT NULL,
	status TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	start_time_ms BIGINT NOT NULL,
	end_time_ms BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL
)`, idCol)
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_start ON arbitrage_history (start_time_ms)`); err != nil {
		return fmt.Errorf("migrate history index: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Record(ctx context.Context, result *models.ArbitrageResult) (int64, error) {
	durationMs := result.EndTime.Sub(result.StartTime).Milliseconds()
	query := s.rebind(`
INSERT INTO arbitrage_history
	(base_asset, buy_quote, sell_quote, buy_price, sell_price,
	 trade_amount, profit, profit_percentage, buy_order_id, sell_order_id,
	 status, trade_date, start_time_ms, end_time_ms, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`)
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		result.BaseAsset,
		result.BuyQuote,
		result.SellQuote,
		result.BuyPrice.String(),
		result.SellPrice.String(),
		result.TradeAmount.String(),
		result.Profit.String(),
		result.ProfitPercentage.String(),
		int64(result.BuyOrderID),
		int64(result.SellOrderID),
		string(result.Status),
		result.StartTime.UTC().Format("2006-01-02"),
		result.StartTime.UnixMilli(),
		result.EndTime.UnixMilli(),
		durationMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record result: %w", err)
	}
	return id, nil
}

type historyRow struct {
	baseAsset  string
	status     string
	profit     decimal.Decimal
	amount     decimal.Decimal
	tradeDate  string
	durationMs int64
}

func (s *SQLStore) fetchRange(ctx context.Context, start, end time.Time) ([]historyRow, error) {
	query := s.rebind(`
SELECT base_asset, status, profit, trade_amount, trade_date, duration_ms
FROM arbitrage_history
WHERE start_time_ms >= ? AND start_time_ms <= ?
ORDER BY start_time_ms`)
	rows, err := s.db.QueryContext(ctx, query, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query history range: %w", err)
	}
	defer rows.Close()

	var out []historyRow
	for rows.Next() {
		var (
			r                 historyRow
			profitStr, amtStr string
		)
		if err := rows.Scan(&r.baseAsset, &r.status, &profitStr, &amtStr, &r.tradeDate, &r.durationMs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if r.profit, err = decimal.NewFromString(profitStr); err != nil {
			return nil, fmt.Errorf("parse profit %q: %w", profitStr, err)
		}
		if r.amount, err = decimal.NewFromString(amtStr); err != nil {
			return nil, fmt.Errorf("parse trade amount %q: %w", amtStr, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) OverallStats(ctx context.Context, start, end time.Time) (TradeStats, error) {
	rows, err := s.fetchRange(ctx, start, end)
	if err != nil {
		return TradeStats{}, err
	}
	var (
		stats       TradeStats
		durationSum int64
		first       = true
	)
	for _, r := range rows {
		stats.TotalTrades++
		if r.status == string(models.StatusCompleted) {
			stats.SuccessfulTrades++
		} else {
			stats.FailedTrades++
		}
		stats.TotalProfit = stats.TotalProfit.Add(r.profit)
		stats.TotalVolume = stats.TotalVolume.Add(r.amount)
		durationSum += r.durationMs
		if first {
			stats.MaxProfit = r.profit
			stats.MaxLoss = r.profit
			first = false
		} else {
			if r.profit.GreaterThan(stats.MaxProfit) {
				stats.MaxProfit = r.profit
			}
			if r.profit.LessThan(stats.MaxLoss) {
				stats.MaxLoss = r.profit
			}
		}
	}
	if stats.TotalTrades > 0 {
		stats.AvgProfitPerTrade = stats.TotalProfit.Div(decimal.NewFromInt(stats.TotalTrades))
		stats.AvgDurationMs = durationSum / stats.TotalTrades
	}
	return stats, nil
}

func (s *SQLStore) DailyStats(ctx context.Context, start, end time.Time) ([]DailyStat, error) {
	rows, err := s.fetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*DailyStat)
	var successByDate = make(map[string]int64)
	for _, r := range rows {
		stat, ok := byDate[r.tradeDate]
		if !ok {
			stat = &DailyStat{Date: r.tradeDate}
			byDate[r.tradeDate] = stat
		}
		stat.Trades++
		stat.Profit = stat.Profit.Add(r.profit)
		stat.Volume = stat.Volume.Add(r.amount)
		if r.status == string(models.StatusCompleted) {
			successByDate[r.tradeDate]++
		}
	}
	out := make([]DailyStat, 0, len(byDate))
	for date, stat := range byDate {
		if stat.Trades > 0 {
			stat.SuccessRate = float64(successByDate[date]) / float64(stat.Trades) * 100
		}
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *SQLStore) AssetStats(ctx context.Context, start, end time.Time, limit int) ([]AssetStat, error) {
	rows, err := s.fetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byAsset := make(map[string]*AssetStat)
	for _, r := range rows {
		stat, ok := byAsset[r.baseAsset]
		if !ok {
			stat = &AssetStat{Asset: r.baseAsset}
			byAsset[r.baseAsset] = stat
		}
		stat.Trades++
		stat.Profit = stat.Profit.Add(r.profit)
		stat.Volume = stat.Volume.Add(r.amount)
	}
	out := make([]AssetStat, 0, len(byAsset))
	for _, stat := range byAsset {
		if stat.Trades > 0 {
			stat.AvgProfit = stat.Profit.Div(decimal.NewFromInt(stat.Trades))
		}
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profit.GreaterThan(out[j].Profit) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
