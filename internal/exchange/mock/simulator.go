package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// Simulator drives the mock exchange with a random walk on the USDT market
// and a USDC market that tracks it with a configurable chance of diverging
// enough to open an arbitrage window.
type Simulator struct {
	client      *Client
	baseAsset   string
	volatility  float64
	opportunity float64
	interval    time.Duration
	rng         *rand.Rand
	log         *zap.Logger
}

// NewSimulator configures a price driver. volatility and opportunity are
// percentages: volatility bounds the per-tick move of the USDT price,
// opportunity is the chance per tick that the USDC price is offset by a
// random spread of up to 50 quote units.
func NewSimulator(client *Client, baseAsset string, volatility, opportunity float64, interval time.Duration, log *zap.Logger) *Simulator {
	return &Simulator{
		client:      client,
		baseAsset:   baseAsset,
		volatility:  volatility,
		opportunity: opportunity,
		interval:    interval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		log:         log,
	}
}

// Run updates both markets every interval until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	usdtSymbol := models.SymbolFor(s.baseAsset, models.QuoteUSDT)
	usdcSymbol := models.SymbolFor(s.baseAsset, models.QuoteUSDC)

	price, err := s.client.Price(ctx, usdtSymbol)
	if err != nil {
		return err
	}
	usdt, _ := price.Price.Float64()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		move := (s.rng.Float64()*2 - 1) * s.volatility / 100
		usdt *= 1 + move
		if usdt < 1.0 {
			usdt = 1.0
		}

		usdc := usdt
		if s.rng.Float64()*100 < s.opportunity {
			spread := s.rng.Float64() * 50
			if s.rng.Intn(2) == 0 {
				spread = -spread
			}
			usdc = usdt + spread
			if usdc < 1.0 {
				usdc = 1.0
			}
		}

		s.client.UpdatePrice(usdtSymbol, decimal.NewFromFloat(usdt))
		s.client.UpdatePrice(usdcSymbol, decimal.NewFromFloat(usdc))
		s.log.Debug("simulated tick",
			zap.String("base_asset", s.baseAsset),
			zap.Float64("usdt", usdt),
			zap.Float64("usdc", usdc))
	}
}
