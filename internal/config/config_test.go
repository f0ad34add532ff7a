package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Arbitrage.MinProfitPercentage != 0.1 {
		t.Fatalf("unexpected min profit default: %v", cfg.Arbitrage.MinProfitPercentage)
	}
	if cfg.Arbitrage.MaxTradeAmountUSDT != 100 {
		t.Fatalf("unexpected max amount default: %v", cfg.Arbitrage.MaxTradeAmountUSDT)
	}
	if cfg.Arbitrage.CheckIntervalMs != 1000 {
		t.Fatalf("unexpected interval default: %v", cfg.Arbitrage.CheckIntervalMs)
	}
	if len(cfg.Strategies.Enabled) != 1 || cfg.Strategies.Enabled[0] != "simple" {
		t.Fatalf("unexpected default strategies: %v", cfg.Strategies.Enabled)
	}
	if len(cfg.Risk.Enabled) != 2 {
		t.Fatalf("unexpected default controllers: %v", cfg.Risk.Enabled)
	}
	if !cfg.Risk.TimeWindow.TradeOnWeekends {
		t.Fatalf("expected weekend trading enabled by default")
	}
	if cfg.Exchange.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout default: %v", cfg.Exchange.Timeout)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
arbitrage:
  min_profit_percentage: 0.2
  max_trade_amount_usdt: 500
strategies:
  enabled: [simple, twap, depth]
  twap:
    slices: 10
risk:
  enabled: [loss-limit, frequency]
  daily_loss:
    max_daily_loss: 25
  time_window:
    start_hour: 9
    end_hour: 17
    trade_on_weekends: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Arbitrage.MinProfitPercentage != 0.2 {
		t.Fatalf("unexpected min profit: %v", cfg.Arbitrage.MinProfitPercentage)
	}
	if cfg.Strategies.TWAP.Slices != 10 {
		t.Fatalf("unexpected slices: %v", cfg.Strategies.TWAP.Slices)
	}
	// Omitted options still receive defaults.
	if cfg.Strategies.TWAP.IntervalSeconds != 60 {
		t.Fatalf("unexpected twap interval: %v", cfg.Strategies.TWAP.IntervalSeconds)
	}
	if cfg.Risk.DailyLoss.MaxDailyLoss != 25 {
		t.Fatalf("unexpected daily loss: %v", cfg.Risk.DailyLoss.MaxDailyLoss)
	}
	if cfg.Risk.TimeWindow.TradeOnWeekends {
		t.Fatalf("expected weekend trading disabled when set explicitly")
	}
	if cfg.Risk.TimeWindow.EndHour != 17 {
		t.Fatalf("unexpected end hour: %v", cfg.Risk.TimeWindow.EndHour)
	}
}

func TestLoadRejectsUnknownNames(t *testing.T) {
	path := writeConfig(t, `
strategies:
  enabled: [simple, martingale]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}

	path = writeConfig(t, `
risk:
  enabled: [loss-limit, vibes]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown controller")
	}
}

func TestLoadRejectsBadBlacklistSymbols(t *testing.T) {
	path := writeConfig(t, `
risk:
  blacklist: [BTCEUR]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for non-stablecoin blacklist symbol")
	}
}

func TestDecFallsBackToZero(t *testing.T) {
	if !Dec(math.NaN()).IsZero() {
		t.Fatalf("NaN must convert to zero")
	}
	if !Dec(math.Inf(1)).IsZero() {
		t.Fatalf("Inf must convert to zero")
	}
	if Dec(0.5).String() != "0.5" {
		t.Fatalf("unexpected conversion: %s", Dec(0.5))
	}
}
