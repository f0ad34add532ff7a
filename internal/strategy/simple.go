package strategy

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// Simple trades the raw spread between the two quote markets whenever it
// clears the configured minimum profit.
type Simple struct {
	minProfit      decimal.Decimal
	maxTradeAmount decimal.Decimal
	log            *zap.Logger
}

func NewSimple(minProfit, maxTradeAmount decimal.Decimal, log *zap.Logger) *Simple {
	return &Simple{minProfit: minProfit, maxTradeAmount: maxTradeAmount, log: log}
}

func (s *Simple) Name() string { return "simple" }

func (s *Simple) Description() string {
	return "buy the cheaper quote market and sell the other when the spread clears the minimum profit"
}

func (s *Simple) FindOpportunity(_ context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error) {
	opp := SpotOpportunity(baseAsset, usdtPrice.Price, usdcPrice.Price, s.maxTradeAmount)
	s.log.Debug("spot spread",
		zap.String("base_asset", baseAsset),
		zap.String("buy_quote", opp.BuyQuote.String()),
		zap.String("sell_quote", opp.SellQuote.String()),
		zap.String("profit_pct", opp.ProfitPercentage.String()))
	return opp, nil
}

func (s *Simple) Validate(_ context.Context, opp *models.ArbitrageOpportunity) (bool, error) {
	return opp.ProfitPercentage.GreaterThanOrEqual(s.minProfit), nil
}
