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

type priceRecord struct {
	at     time.Time
	symbol string
	price  decimal.Decimal
}

// AbnormalPrice denies trading when the latest price for either market jumps
// too far from its recent mean, then keeps denying for a cooldown period.
type AbnormalPrice struct {
	windowSize     int
	threshold      decimal.Decimal
	cooldownPeriod time.Duration
	log            *zap.Logger

	mu           sync.Mutex
	history      []priceRecord
	lastAbnormal time.Time
}

func NewAbnormalPrice(windowSize int, threshold decimal.Decimal, cooldownPeriod time.Duration, log *zap.Logger) *AbnormalPrice {
	if windowSize < 1 {
		windowSize = 1
	}
	return &AbnormalPrice{
		windowSize:     windowSize,
		threshold:      threshold,
		cooldownPeriod: cooldownPeriod,
		log:            log,
	}
}

func (c *AbnormalPrice) Name() string { return "abnormal-price" }

func (c *AbnormalPrice) Description() string {
	return "pause trading after extreme price moves, with a cooldown before resuming"
}

// AddPrice records a price sample for symbol. The ring holds twice the window
// size so both markets keep a full window each.
func (c *AbnormalPrice) AddPrice(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, priceRecord{at: time.Now(), symbol: symbol, price: price})
	if max := c.windowSize * 2; len(c.history) > max {
		c.history = c.history[len(c.history)-max:]
	}
}

func (c *AbnormalPrice) CheckOpportunity(_ context.Context, opp *models.ArbitrageOpportunity) (bool, string, error) {
	usdtSymbol := models.SymbolFor(opp.BaseAsset, models.QuoteUSDT)
	usdcSymbol := models.SymbolFor(opp.BaseAsset, models.QuoteUSDC)

	// Both legs are recorded on every check, even when the check then denies.
	if opp.BuyQuote == models.QuoteUSDT {
		c.AddPrice(usdtSymbol, opp.BuyPrice)
		c.AddPrice(usdcSymbol, opp.SellPrice)
	} else {
		c.AddPrice(usdcSymbol, opp.BuyPrice)
		c.AddPrice(usdtSymbol, opp.SellPrice)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastAbnormal.IsZero() {
		if elapsed := time.Since(c.lastAbnormal); elapsed < c.cooldownPeriod {
			remaining := c.cooldownPeriod - elapsed
			return false, fmt.Sprintf("in abnormal-price cooldown, %s remaining", remaining.Round(time.Second)), nil
		}
	}

	for _, symbol := range []string{usdtSymbol, usdcSymbol} {
		if change, abnormal := c.detectLocked(symbol); abnormal {
			reason := fmt.Sprintf("abnormal price move on %s: %s%% > threshold %s%%", symbol, change.StringFixed(2), c.threshold)
			c.log.Warn(reason)
			c.lastAbnormal = time.Now()
			return false, reason, nil
		}
	}
	return true, "", nil
}

func (c *AbnormalPrice) RecordResult(_ context.Context, _ *models.ArbitrageResult) error {
	return nil
}

func (c *AbnormalPrice) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.lastAbnormal = time.Time{}
	return nil
}

// detectLocked compares the latest sample for symbol against the mean of the
// earlier samples. Fewer than two samples means nothing to compare.
func (c *AbnormalPrice) detectLocked(symbol string) (decimal.Decimal, bool) {
	var prices []decimal.Decimal
	for _, rec := range c.history {
		if rec.symbol == symbol {
			prices = append(prices, rec.price)
		}
	}
	if len(prices) < 2 {
		return decimal.Zero, false
	}
	latest := prices[len(prices)-1]
	sum := decimal.Zero
	for _, p := range prices[:len(prices)-1] {
		sum = sum.Add(p)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(prices) - 1)))
	if mean.IsZero() {
		return decimal.Zero, false
	}
	change := latest.Sub(mean).Div(mean).Abs().Mul(decimal.NewFromInt(100))
	return change, change.GreaterThan(c.threshold)
}
