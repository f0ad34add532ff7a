package risk

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// PairBlacklist excludes base assets from trading. An opportunity is denied
// when either of its markets is listed, not only the traded pair.
type PairBlacklist struct {
	log *zap.Logger

	mu    sync.Mutex
	pairs map[string]struct{}
}

func NewPairBlacklist(log *zap.Logger) *PairBlacklist {
	return &PairBlacklist{log: log, pairs: make(map[string]struct{})}
}

func (c *PairBlacklist) Name() string { return "pair-blacklist" }

func (c *PairBlacklist) Description() string {
	return "exclude blacklisted trading pairs from arbitrage"
}

func (c *PairBlacklist) AddPair(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs[symbol] = struct{}{}
	c.log.Info("pair blacklisted", zap.String("symbol", symbol))
}

// AddBaseAsset blacklists both quote markets of the asset.
func (c *PairBlacklist) AddBaseAsset(baseAsset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs[models.SymbolFor(baseAsset, models.QuoteUSDT)] = struct{}{}
	c.pairs[models.SymbolFor(baseAsset, models.QuoteUSDC)] = struct{}{}
	c.log.Info("base asset blacklisted", zap.String("base_asset", baseAsset))
}

func (c *PairBlacklist) RemoveBaseAsset(baseAsset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pairs, models.SymbolFor(baseAsset, models.QuoteUSDT))
	delete(c.pairs, models.SymbolFor(baseAsset, models.QuoteUSDC))
}

func (c *PairBlacklist) CheckOpportunity(_ context.Context, opp *models.ArbitrageOpportunity) (bool, string, error) {
	usdtSymbol := models.SymbolFor(opp.BaseAsset, models.QuoteUSDT)
	usdcSymbol := models.SymbolFor(opp.BaseAsset, models.QuoteUSDC)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pairs[usdtSymbol]; ok {
		return false, fmt.Sprintf("%s is blacklisted", opp.BaseAsset), nil
	}
	if _, ok := c.pairs[usdcSymbol]; ok {
		return false, fmt.Sprintf("%s is blacklisted", opp.BaseAsset), nil
	}
	return true, "", nil
}

func (c *PairBlacklist) RecordResult(_ context.Context, _ *models.ArbitrageResult) error { return nil }

func (c *PairBlacklist) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs = make(map[string]struct{})
	return nil
}
