package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// DailyLossLimit stops trading for the rest of the local calendar day once
// cumulative realized losses reach the configured cap.
type DailyLossLimit struct {
	maxDailyLoss decimal.Decimal
	log          *zap.Logger

	mu       sync.Mutex
	year     int
	month    time.Month
	day      int
	dailyPnL decimal.Decimal
}

func NewDailyLossLimit(maxDailyLoss decimal.Decimal, log *zap.Logger) *DailyLossLimit {
	now := time.Now()
	return &DailyLossLimit{
		maxDailyLoss: maxDailyLoss,
		log:          log,
		year:         now.Year(),
		month:        now.Month(),
		day:          now.Day(),
	}
}

func (c *DailyLossLimit) Name() string { return "daily-loss-limit" }

func (c *DailyLossLimit) Description() string {
	return "stop trading once today's cumulative loss reaches the cap"
}

func (c *DailyLossLimit) CheckOpportunity(_ context.Context, _ *models.ArbitrageOpportunity) (bool, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked()
	if c.dailyPnL.LessThanOrEqual(c.maxDailyLoss.Neg()) {
		reason := fmt.Sprintf("daily loss limit %s reached, today's pnl %s", c.maxDailyLoss, c.dailyPnL)
		c.log.Warn(reason)
		return false, reason, nil
	}
	return true, "", nil
}

func (c *DailyLossLimit) RecordResult(_ context.Context, result *models.ArbitrageResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked()
	if result.Status != models.StatusCompleted {
		return nil
	}
	c.dailyPnL = c.dailyPnL.Add(result.Profit)
	c.log.Info("recorded realized pnl",
		zap.String("base_asset", result.BaseAsset),
		zap.String("profit", result.Profit.String()),
		zap.String("daily_pnl", c.dailyPnL.String()))
	return nil
}

func (c *DailyLossLimit) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dailyPnL = decimal.Zero
	return nil
}

// rollDayLocked zeroes the accumulator when the local date has changed.
func (c *DailyLossLimit) rollDayLocked() {
	now := time.Now()
	if now.Year() == c.year && now.Month() == c.month && now.Day() == c.day {
		return
	}
	c.log.Info("new trading day, resetting daily pnl",
		zap.String("date", now.Format("2006-01-02")))
	c.year, c.month, c.day = now.Year(), now.Month(), now.Day()
	c.dailyPnL = decimal.Zero
}
