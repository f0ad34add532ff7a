package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

type trendDirection int

const (
	trendSideways trendDirection = iota
	trendUp
	trendDown
)

func (d trendDirection) String() string {
	switch d {
	case trendUp:
		return "up"
	case trendDown:
		return "down"
	default:
		return "sideways"
	}
}

var (
	spikeThresholdPct  = decimal.NewFromInt(5)
	adverseTrendFloor  = decimal.NewFromInt(2)
	reductionThreshold = decimal.NewFromInt(1)
)

// TrendFollowing compares short and long rolling means per quote and backs
// off when the market is moving against the intended legs, shrinking the
// trade size as trends strengthen.
type TrendFollowing struct {
	minProfit      decimal.Decimal
	maxTradeAmount decimal.Decimal
	shortWindow    int
	longWindow     int
	threshold      decimal.Decimal
	log            *zap.Logger

	mu      sync.Mutex
	history []pricePoint
}

func NewTrendFollowing(minProfit, maxTradeAmount decimal.Decimal, shortWindow, longWindow int, threshold decimal.Decimal, log *zap.Logger) *TrendFollowing {
	if shortWindow < 1 {
		shortWindow = 1
	}
	if longWindow < shortWindow {
		longWindow = shortWindow
	}
	return &TrendFollowing{
		minProfit:      minProfit,
		maxTradeAmount: maxTradeAmount,
		shortWindow:    shortWindow,
		longWindow:     longWindow,
		threshold:      threshold,
		log:            log,
	}
}

func (s *TrendFollowing) Name() string { return "trend" }

func (s *TrendFollowing) Description() string {
	return "skip or shrink trades when short-term momentum runs against the intended legs"
}

func (s *TrendFollowing) FindOpportunity(_ context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error) {
	s.record(usdtPrice.Price, usdcPrice.Price)

	if s.hasRecentSpike(5 * time.Minute) {
		s.log.Warn("volatility spike in recent history, skipping tick")
		return nil, nil
	}

	usdtTrend, usdtStrength := s.trend(true)
	usdcTrend, usdcStrength := s.trend(false)
	s.log.Info("trend analysis",
		zap.String("usdt_trend", usdtTrend.String()),
		zap.String("usdt_strength", usdtStrength.String()),
		zap.String("usdc_trend", usdcTrend.String()),
		zap.String("usdc_strength", usdcStrength.String()))

	var opp models.ArbitrageOpportunity
	if usdtPrice.Price.LessThan(usdcPrice.Price) {
		// Buying USDT: a strong USDT rally or USDC slide erodes the spread
		// before the legs complete.
		if (usdtTrend == trendUp && usdtStrength.GreaterThan(adverseTrendFloor)) ||
			(usdcTrend == trendDown && usdcStrength.GreaterThan(adverseTrendFloor)) {
			s.log.Warn("adverse trend against buy-USDT leg",
				zap.String("usdt_strength", usdtStrength.String()),
				zap.String("usdc_strength", usdcStrength.String()))
			return nil, nil
		}
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDT, models.QuoteUSDC, usdtPrice.Price, usdcPrice.Price, s.maxTradeAmount)
	} else {
		if (usdcTrend == trendUp && usdcStrength.GreaterThan(adverseTrendFloor)) ||
			(usdtTrend == trendDown && usdtStrength.GreaterThan(adverseTrendFloor)) {
			s.log.Warn("adverse trend against buy-USDC leg",
				zap.String("usdt_strength", usdtStrength.String()),
				zap.String("usdc_strength", usdcStrength.String()))
			return nil, nil
		}
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDC, models.QuoteUSDT, usdcPrice.Price, usdtPrice.Price, s.maxTradeAmount)
	}

	strength := decimal.Max(usdtStrength, usdcStrength)
	if strength.GreaterThan(reductionThreshold) {
		one := decimal.NewFromInt(1)
		factor := one.Sub(strength.Sub(one).Div(decimal.NewFromInt(10)))
		adjusted := s.maxTradeAmount.Mul(factor)
		floor := s.maxTradeAmount.Div(decimal.NewFromInt(5))
		if adjusted.LessThan(floor) {
			adjusted = floor
		}
		opp = models.NewOpportunity(baseAsset, opp.BuyQuote, opp.SellQuote, opp.BuyPrice, opp.SellPrice, adjusted)
		s.log.Info("trade amount reduced for trend strength",
			zap.String("amount", adjusted.String()),
			zap.String("strength", strength.String()))
	}
	return &opp, nil
}

func (s *TrendFollowing) Validate(_ context.Context, opp *models.ArbitrageOpportunity) (bool, error) {
	_, usdtStrength := s.trend(true)
	_, usdcStrength := s.trend(false)
	strength := decimal.Max(usdtStrength, usdcStrength)
	threshold := s.minProfit.Mul(decimal.NewFromInt(1).Add(strength.Div(decimal.NewFromInt(10))))
	return opp.ProfitPercentage.GreaterThanOrEqual(threshold), nil
}

func (s *TrendFollowing) record(usdt, usdc decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, pricePoint{at: time.Now(), usdt: usdt, usdc: usdc})
	if len(s.history) > s.longWindow {
		s.history = s.history[len(s.history)-s.longWindow:]
	}
}

// trend returns the direction and absolute strength of the short-versus-long
// mean divergence for one quote. With fewer samples than the long window the
// trend is reported sideways with zero strength.
func (s *TrendFollowing) trend(isUSDT bool) (trendDirection, decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) < s.longWindow {
		return trendSideways, decimal.Zero
	}
	recent := func(n int) []decimal.Decimal {
		out := make([]decimal.Decimal, 0, n)
		for _, p := range s.history[len(s.history)-n:] {
			if isUSDT {
				out = append(out, p.usdt)
			} else {
				out = append(out, p.usdc)
			}
		}
		return out
	}
	shortMean := meanOf(recent(s.shortWindow))
	longMean := meanOf(recent(s.longWindow))
	if longMean.IsZero() {
		return trendSideways, decimal.Zero
	}
	change := shortMean.Sub(longMean).Div(longMean).Mul(hundred)
	switch {
	case change.GreaterThan(s.threshold):
		return trendUp, change.Abs()
	case change.LessThan(s.threshold.Neg()):
		return trendDown, change.Abs()
	default:
		return trendSideways, change.Abs()
	}
}

// hasRecentSpike reports whether any consecutive pair of samples within span
// moved more than 5% on either quote.
func (s *TrendFollowing) hasRecentSpike(span time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) < 2 {
		return false
	}
	cutoff := time.Now().Add(-span)
	var recent []pricePoint
	for _, p := range s.history {
		if !p.at.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	if len(recent) < 2 {
		return false
	}
	for i := 1; i < len(recent); i++ {
		prev, curr := recent[i-1], recent[i]
		if !prev.usdt.IsZero() {
			change := curr.usdt.Sub(prev.usdt).Div(prev.usdt).Abs().Mul(hundred)
			if change.GreaterThan(spikeThresholdPct) {
				return true
			}
		}
		if !prev.usdc.IsZero() {
			change := curr.usdc.Sub(prev.usdc).Div(prev.usdc).Abs().Mul(hundred)
			if change.GreaterThan(spikeThresholdPct) {
				return true
			}
		}
	}
	return false
}
