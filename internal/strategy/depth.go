package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/models"
)

// OrderBookDepth walks both markets' books before committing: it requires a
// minimum of fillable liquidity on every leg and reprices the spread with the
// expected slippage of the walk.
type OrderBookDepth struct {
	client         exchange.Client
	minProfit      decimal.Decimal
	maxTradeAmount decimal.Decimal
	depthLevels    int
	minLiquidity   decimal.Decimal
	log            *zap.Logger
}

func NewOrderBookDepth(client exchange.Client, minProfit, maxTradeAmount decimal.Decimal, depthLevels int, minLiquidity decimal.Decimal, log *zap.Logger) *OrderBookDepth {
	return &OrderBookDepth{
		client:         client,
		minProfit:      minProfit,
		maxTradeAmount: maxTradeAmount,
		depthLevels:    depthLevels,
		minLiquidity:   minLiquidity,
		log:            log,
	}
}

func (s *OrderBookDepth) Name() string { return "depth" }

func (s *OrderBookDepth) Description() string {
	return "walk both order books to verify liquidity and reprice the spread with expected slippage"
}

func (s *OrderBookDepth) FindOpportunity(ctx context.Context, baseAsset string, usdtPrice, usdcPrice models.Price) (*models.ArbitrageOpportunity, error) {
	usdtSymbol := models.SymbolFor(baseAsset, models.QuoteUSDT)
	usdcSymbol := models.SymbolFor(baseAsset, models.QuoteUSDC)

	if usdtPrice.Price.IsZero() {
		return nil, nil
	}
	approxBase := s.maxTradeAmount.Div(usdtPrice.Price)

	usdtBuyLiq, usdtBuySlip, err := s.walkBook(ctx, usdtSymbol, models.SideBuy, approxBase)
	if err != nil {
		return nil, err
	}
	usdtSellLiq, usdtSellSlip, err := s.walkBook(ctx, usdtSymbol, models.SideSell, approxBase)
	if err != nil {
		return nil, err
	}
	usdcBuyLiq, usdcBuySlip, err := s.walkBook(ctx, usdcSymbol, models.SideBuy, approxBase)
	if err != nil {
		return nil, err
	}
	usdcSellLiq, usdcSellSlip, err := s.walkBook(ctx, usdcSymbol, models.SideSell, approxBase)
	if err != nil {
		return nil, err
	}

	if usdtBuyLiq.LessThan(s.minLiquidity) || usdtSellLiq.LessThan(s.minLiquidity) ||
		usdcBuyLiq.LessThan(s.minLiquidity) || usdcSellLiq.LessThan(s.minLiquidity) {
		s.log.Info("insufficient book liquidity",
			zap.String("usdt_buy", usdtBuyLiq.String()),
			zap.String("usdt_sell", usdtSellLiq.String()),
			zap.String("usdc_buy", usdcBuyLiq.String()),
			zap.String("usdc_sell", usdcSellLiq.String()),
			zap.String("min_liquidity", s.minLiquidity.String()))
		return nil, nil
	}

	one := decimal.NewFromInt(1)
	usdtEffBuy := usdtPrice.Price.Mul(one.Add(usdtBuySlip.Div(hundred)))
	usdtEffSell := usdtPrice.Price.Mul(one.Sub(usdtSellSlip.Div(hundred)))
	usdcEffBuy := usdcPrice.Price.Mul(one.Add(usdcBuySlip.Div(hundred)))
	usdcEffSell := usdcPrice.Price.Mul(one.Sub(usdcSellSlip.Div(hundred)))

	var opp models.ArbitrageOpportunity
	switch {
	case usdtEffBuy.LessThan(usdcEffSell):
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDT, models.QuoteUSDC, usdtEffBuy, usdcEffSell, s.maxTradeAmount)
	case usdcEffBuy.LessThan(usdtEffSell):
		opp = models.NewOpportunity(baseAsset, models.QuoteUSDC, models.QuoteUSDT, usdcEffBuy, usdtEffSell, s.maxTradeAmount)
	default:
		s.log.Debug("no spread left after slippage adjustment")
		return nil, nil
	}
	return &opp, nil
}

func (s *OrderBookDepth) Validate(_ context.Context, opp *models.ArbitrageOpportunity) (bool, error) {
	// Slippage-adjusted spreads must clear 150% of the configured minimum.
	threshold := s.minProfit.Mul(decimal.RequireFromString("1.5"))
	return opp.ProfitPercentage.GreaterThanOrEqual(threshold), nil
}

// walkBook simulates filling qty against one side of the book. It returns the
// executed quantity and the slippage of the walk's vwap versus the touch. A
// book too thin to fill qty returns the available liquidity with zero
// slippage, which the caller treats as a liquidity failure.
func (s *OrderBookDepth) walkBook(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (executed, slippage decimal.Decimal, err error) {
	book, err := s.client.OrderBook(ctx, symbol, s.depthLevels)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	levels := book.Asks
	if side == models.SideSell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("empty order book for %s", symbol)
	}

	best := levels[0].Price
	remaining := qty
	cost := decimal.Zero
	executed = decimal.Zero
	for _, level := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		fill := level.Qty
		if remaining.LessThan(fill) {
			fill = remaining
		}
		cost = cost.Add(fill.Mul(level.Price))
		executed = executed.Add(fill)
		remaining = remaining.Sub(fill)
	}
	if remaining.GreaterThan(decimal.Zero) {
		s.log.Warn("book too thin to fill",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.String("wanted", qty.String()),
			zap.String("available", executed.String()))
		return executed, decimal.Zero, nil
	}

	vwap := best
	if executed.GreaterThan(decimal.Zero) {
		vwap = cost.Div(executed)
	}
	if side == models.SideBuy {
		slippage = vwap.Sub(best).Div(best).Mul(hundred)
	} else {
		slippage = best.Sub(vwap).Div(best).Mul(hundred)
	}
	return executed, slippage, nil
}
