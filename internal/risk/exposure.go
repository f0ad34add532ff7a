package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/models"
)

// Exposure caps the base-asset position per asset. Balances are refreshed
// from the exchange on every check rather than tracked locally.
type Exposure struct {
	client       exchange.Client
	maxExposures map[string]decimal.Decimal
	log          *zap.Logger

	mu        sync.Mutex
	positions map[string]decimal.Decimal
}

func NewExposure(client exchange.Client, log *zap.Logger) *Exposure {
	return &Exposure{
		client:       client,
		maxExposures: make(map[string]decimal.Decimal),
		log:          log,
		positions:    make(map[string]decimal.Decimal),
	}
}

func (c *Exposure) Name() string { return "exposure" }

func (c *Exposure) Description() string {
	return "limit the position held in any single base asset"
}

func (c *Exposure) SetMaxExposure(asset string, max decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxExposures[asset] = max
	c.log.Info("max exposure set", zap.String("asset", asset), zap.String("max", max.String()))
}

func (c *Exposure) CheckOpportunity(ctx context.Context, opp *models.ArbitrageOpportunity) (bool, string, error) {
	if err := c.refreshPositions(ctx); err != nil {
		return false, "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	max, ok := c.maxExposures[opp.BaseAsset]
	if !ok {
		return true, "", nil
	}
	position := c.positions[opp.BaseAsset]
	after := position.Add(opp.TradeAmountBase())
	if after.Abs().GreaterThan(max) {
		reason := fmt.Sprintf("exposure for %s would exceed limit: %s + %s = %s > %s",
			opp.BaseAsset, position, opp.TradeAmountBase(), after, max)
		c.log.Warn(reason)
		return false, reason, nil
	}
	return true, "", nil
}

func (c *Exposure) RecordResult(_ context.Context, result *models.ArbitrageResult) error {
	if result.Status == models.StatusCompleted {
		c.log.Info("arbitrage completed",
			zap.String("base_asset", result.BaseAsset),
			zap.String("profit", result.Profit.String()))
	}
	return nil
}

func (c *Exposure) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions = make(map[string]decimal.Decimal)
	return nil
}

func (c *Exposure) refreshPositions(ctx context.Context) error {
	c.mu.Lock()
	assets := make([]string, 0, len(c.maxExposures))
	for asset := range c.maxExposures {
		assets = append(assets, asset)
	}
	c.mu.Unlock()

	for _, asset := range assets {
		balance, err := c.client.AccountBalance(ctx, asset)
		if err != nil {
			return fmt.Errorf("refresh %s balance: %w", asset, err)
		}
		c.mu.Lock()
		c.positions[asset] = balance
		c.mu.Unlock()
	}
	return nil
}
