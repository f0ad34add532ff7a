package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

const (
	twapHistoryCap    = 100
	twapTrailingRange = 300 * time.Second
)

// TWAP prices the opportunity off a trailing time-weighted average instead of
// spot, and sizes each opportunity to one slice of the total trade amount.
type TWAP struct {
	minProfit      decimal.Decimal
	maxTradeAmount decimal.Decimal
	slices         int
	log            *zap.Logger

	mu      sync.Mutex
	history []pricePoint
}

func NewTWAP(minProfit, maxTradeAmount decimal.Decimal, slices int, log *zap.Logger) *TWAP {
	if slices < 1 {
		slices = 1
	}
	return &TWAP{minProfit: minProfit, maxTradeAmount: maxTradeAmount, slices: slices, log: log}
}

func (s *TWAP) Name() string { return "twap" }

func (s *TWAP) Description() string {
	return "split the trade into slices priced off a trailing time-weighted average"
}

func (s *TWAP) FindOpportunity(_ context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error) {
	s.record(usdtPrice.Price, usdcPrice.Price)

	twapUSDT, twapUSDC, ok := s.trailingMean(twapTrailingRange)
	if !ok {
		twapUSDT, twapUSDC = usdtPrice.Price, usdcPrice.Price
	}

	sliceAmount := s.maxTradeAmount.Div(decimal.NewFromInt(int64(s.slices)))
	opp := SpotOpportunity(baseAsset, twapUSDT, twapUSDC, sliceAmount)
	s.log.Debug("twap pricing",
		zap.String("base_asset", baseAsset),
		zap.String("twap_usdt", twapUSDT.String()),
		zap.String("twap_usdc", twapUSDC.String()),
		zap.String("slice_amount", sliceAmount.String()))
	return opp, nil
}

func (s *TWAP) Validate(_ context.Context, opp *models.ArbitrageOpportunity) (bool, error) {
	// Sliced entries accept 80% of the configured minimum.
	threshold := s.minProfit.Mul(decimal.RequireFromString("0.8"))
	return opp.ProfitPercentage.GreaterThanOrEqual(threshold), nil
}

func (s *TWAP) record(usdt, usdc decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, pricePoint{at: time.Now(), usdt: usdt, usdc: usdc})
	if len(s.history) > twapHistoryCap {
		s.history = s.history[len(s.history)-twapHistoryCap:]
	}
}

func (s *TWAP) trailingMean(span time.Duration) (usdt, usdc decimal.Decimal, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-span)
	var usdts, usdcs []decimal.Decimal
	for _, p := range s.history {
		if p.at.Before(cutoff) {
			continue
		}
		usdts = append(usdts, p.usdt)
		usdcs = append(usdcs, p.usdc)
	}
	if len(usdts) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	return meanOf(usdts), meanOf(usdcs), true
}
