// Package strategy contains the opportunity-finding strategies evaluated by
// the engine on every tick. Strategies are independent and may keep private
// rolling price state; they timestamp samples themselves rather than trusting
// the freshness of the prices handed to them.
package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stable-arb-bot/internal/models"
)

type Strategy interface {
	Name() string
	Description() string
	// FindOpportunity inspects the current quote pair and returns a candidate
	// opportunity, or nil when the strategy sees nothing tradable.
	FindOpportunity(ctx context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error)
	// Validate applies the strategy's own acceptance threshold.
	Validate(ctx context.Context, opp *models.ArbitrageOpportunity) (bool, error)
}

// SpotOpportunity builds the cheap-leg opportunity from raw spot prices: buy
// on the lower-priced market, sell on the other.
func SpotOpportunity(baseAsset string, usdt, usdc, maxTradeAmount decimal.Decimal) *models.ArbitrageOpportunity {
	var opp models.ArbitrageOpportunity
	if usdt.LessThan(usdc) {
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDT, models.QuoteUSDC, usdt, usdc, maxTradeAmount)
	} else {
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDC, models.QuoteUSDT, usdc, usdt, maxTradeAmount)
	}
	return &opp
}

type pricePoint struct {
	at   time.Time
	usdt decimal.Decimal
	usdc decimal.Decimal
}

func meanOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

var hundred = decimal.NewFromInt(100)
