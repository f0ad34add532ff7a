package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ExportJSON writes the report as pretty-printed JSON to dir/report.json.
func ExportJSON(report *PerformanceReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ExportCSV writes overview.csv, daily_stats.csv, and asset_stats.csv to dir.
func ExportCSV(report *PerformanceReport, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	daily := [][]string{{"date", "trades", "profit", "volume", "success_rate_pct"}}
	for _, s := range report.DailyStats {
		daily = append(daily, []string{
			s.Date,
			fmt.Sprintf("%d", s.Trades),
			s.Profit.String(),
			s.Volume.String(),
			fmt.Sprintf("%.2f", s.SuccessRate),
		})
	}
	if err := writeCSV(filepath.Join(dir, "daily_stats.csv"), daily); err != nil {
		return err
	}

	assets := [][]string{{"asset", "trades", "total_profit", "total_volume", "avg_profit"}}
	for _, s := range report.AssetStats {
		assets = append(assets, []string{
			s.Asset,
			fmt.Sprintf("%d", s.Trades),
			s.Profit.String(),
			s.Volume.String(),
			s.AvgProfit.String(),
		})
	}
	if err := writeCSV(filepath.Join(dir, "asset_stats.csv"), assets); err != nil {
		return err
	}

	overview := [][]string{
		{"metric", "value"},
		{"total_trades", fmt.Sprintf("%d", report.Overview.TotalTrades)},
		{"successful_trades", fmt.Sprintf("%d", report.Overview.SuccessfulTrades)},
		{"failed_trades", fmt.Sprintf("%d", report.Overview.FailedTrades)},
		{"total_profit", report.Overview.TotalProfit.String()},
		{"total_volume", report.Overview.TotalVolume.String()},
		{"avg_profit_per_trade", report.Overview.AvgProfitPerTrade.String()},
		{"max_profit", report.Overview.MaxProfit.String()},
		{"max_loss", report.Overview.MaxLoss.String()},
		{"success_rate_pct", fmt.Sprintf("%.2f", report.SuccessRate)},
		{"profit_loss_ratio", fmt.Sprintf("%.2f", report.ProfitLossRatio)},
		{"avg_daily_volume", report.AvgDailyVolume.String()},
		{"avg_daily_profit", report.AvgDailyProfit.String()},
	}
	return writeCSV(filepath.Join(dir, "overview.csv"), overview)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
