package strategy

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// SlippageControl discounts the spread by the slippage allowance, tightening
// the discount when recent volatility is high, and demands a higher profit
// margin the more volatile the markets are.
type SlippageControl struct {
	minProfit      decimal.Decimal
	maxTradeAmount decimal.Decimal
	maxSlippagePct decimal.Decimal
	windowSize     int
	log            *zap.Logger

	mu      sync.Mutex
	history []pricePoint
}

func NewSlippageControl(minProfit, maxTradeAmount, maxSlippagePct decimal.Decimal, windowSize int, log *zap.Logger) *SlippageControl {
	if windowSize < 2 {
		windowSize = 2
	}
	return &SlippageControl{
		minProfit:      minProfit,
		maxTradeAmount: maxTradeAmount,
		maxSlippagePct: maxSlippagePct,
		windowSize:     windowSize,
		log:            log,
	}
}

func (s *SlippageControl) Name() string { return "slippage" }

func (s *SlippageControl) Description() string {
	return "discount the spread by a volatility-scaled slippage allowance before accepting it"
}

func (s *SlippageControl) FindOpportunity(_ context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error) {
	s.record(usdtPrice.Price, usdcPrice.Price)

	opp := SpotOpportunity(baseAsset, usdtPrice.Price, usdcPrice.Price, s.maxTradeAmount)

	usdtVol, usdcVol := s.volatility()
	maxVol := decimal.Max(usdtVol, usdcVol)

	// High volatility tightens the slippage allowance rather than widening
	// it: the factor divides the configured percentage.
	one := decimal.NewFromInt(1)
	volFactor := one.Add(maxVol.Div(hundred))
	shift := s.maxSlippagePct.Div(hundred).Div(volFactor)
	buy := opp.BuyPrice.Mul(one.Sub(shift))
	sell := opp.SellPrice.Mul(one.Add(shift))
	adjusted := models.NewOpportunity(baseAsset, opp.BuyQuote, opp.SellQuote, buy, sell, s.maxTradeAmount)

	s.log.Info("slippage-adjusted opportunity",
		zap.String("base_asset", baseAsset),
		zap.String("buy_quote", adjusted.BuyQuote.String()),
		zap.String("sell_quote", adjusted.SellQuote.String()),
		zap.String("volatility_pct", maxVol.String()),
		zap.String("profit_pct", adjusted.ProfitPercentage.String()))
	return &adjusted, nil
}

func (s *SlippageControl) Validate(_ context.Context, opp *models.ArbitrageOpportunity) (bool, error) {
	usdtVol, usdcVol := s.volatility()
	maxVol := decimal.Max(usdtVol, usdcVol)
	// Each 5 points of volatility raises the required margin by 20%.
	threshold := s.minProfit.Mul(decimal.NewFromInt(1).Add(maxVol.Div(decimal.NewFromInt(20))))
	return opp.ProfitPercentage.GreaterThanOrEqual(threshold), nil
}

func (s *SlippageControl) record(usdt, usdc decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, pricePoint{at: time.Now(), usdt: usdt, usdc: usdc})
	if len(s.history) > s.windowSize {
		s.history = s.history[len(s.history)-s.windowSize:]
	}
}

// volatility returns the coefficient of variation in percent for each quote
// over the retained window.
func (s *SlippageControl) volatility() (usdtVol, usdcVol decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) < 2 {
		return decimal.Zero, decimal.Zero
	}
	usdts := make([]decimal.Decimal, 0, len(s.history))
	usdcs := make([]decimal.Decimal, 0, len(s.history))
	for _, p := range s.history {
		usdts = append(usdts, p.usdt)
		usdcs = append(usdcs, p.usdc)
	}
	return coefficientOfVariation(usdts), coefficientOfVariation(usdcs)
}

func coefficientOfVariation(values []decimal.Decimal) decimal.Decimal {
	mean := meanOf(values)
	if mean.IsZero() {
		return decimal.Zero
	}
	varianceSum := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		varianceSum = varianceSum.Add(diff.Mul(diff))
	}
	variance := varianceSum.Div(decimal.NewFromInt(int64(len(values) - 1)))
	// Square root has no exact decimal form; round-trip through float64.
	f, _ := variance.Float64()
	stdDev := decimal.NewFromFloat(math.Sqrt(f))
	return stdDev.Div(mean).Mul(hundred)
}
