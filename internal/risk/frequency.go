package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// Frequency rate-limits trading with two independent gates: a minimum gap
// since the last trade and a maximum trade count per trailing timeframe.
type Frequency struct {
	minInterval  time.Duration
	maxPerWindow int
	timeframe    time.Duration
	log          *zap.Logger

	mu           sync.Mutex
	lastTrade    time.Time
	recentTrades []time.Time
}

func NewFrequency(minInterval time.Duration, maxPerWindow int, timeframe time.Duration, log *zap.Logger) *Frequency {
	return &Frequency{
		minInterval:  minInterval,
		maxPerWindow: maxPerWindow,
		timeframe:    timeframe,
		log:          log,
	}
}

func (c *Frequency) Name() string { return "frequency" }

func (c *Frequency) Description() string {
	return "enforce a minimum gap between trades and a per-timeframe trade cap"
}

func (c *Frequency) CheckOpportunity(_ context.Context, _ *models.ArbitrageOpportunity) (bool, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()

	if !c.lastTrade.IsZero() {
		if elapsed := now.Sub(c.lastTrade); elapsed < c.minInterval {
			remaining := c.minInterval - elapsed
			return false, fmt.Sprintf("trading too frequently, wait %s", remaining.Round(time.Second)), nil
		}
	}

	cutoff := now.Add(-c.timeframe)
	kept := c.recentTrades[:0]
	for _, at := range c.recentTrades {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	c.recentTrades = kept

	if len(c.recentTrades) >= c.maxPerWindow {
		return false, fmt.Sprintf("reached max %d trades per %s", c.maxPerWindow, c.timeframe), nil
	}
	return true, "", nil
}

// RecordResult counts both completed and failed trades toward the limits.
func (c *Frequency) RecordResult(_ context.Context, result *models.ArbitrageResult) error {
	if result.Status != models.StatusCompleted && result.Status != models.StatusFailed {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.lastTrade = now
	c.recentTrades = append(c.recentTrades, now)
	c.log.Debug("trade recorded",
		zap.String("status", string(result.Status)),
		zap.Int("window_count", len(c.recentTrades)),
		zap.Int("window_max", c.maxPerWindow))
	return nil
}

func (c *Frequency) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTrade = time.Time{}
	c.recentTrades = nil
	return nil
}
