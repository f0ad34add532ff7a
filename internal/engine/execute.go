package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

// executeArbitrage drives the two-leg state machine to a terminal result.
// Any failure cancels the outstanding order and yields a Failed record, which
// the caller still feeds to risk and the sink.
func (e *Engine) executeArbitrage(ctx context.Context, opp *models.ArbitrageOpportunity) *models.ArbitrageResult {
	result := &models.ArbitrageResult{
		BaseAsset: opp.BaseAsset,
		BuyQuote:  opp.BuyQuote.String(),
		SellQuote: opp.SellQuote.String(),
		Status:    models.StatusIdentified,
		StartTime: time.Now().UTC(),
	}
	tradeBase := opp.TradeAmountBase()
	if tradeBase.IsZero() {
		e.log.Warn("trade amount resolves to zero, aborting execution")
		return e.fail(result)
	}

	buyOrder, err := e.client.PlaceOrder(ctx, opp.BuySymbol(), models.SideBuy, tradeBase, decimal.Zero)
	if err != nil {
		e.metrics.OrdersFailed.Inc()
		e.log.Warn("buy order placement failed", zap.Error(err))
		return e.fail(result)
	}
	e.metrics.OrdersPlaced.Inc()
	result.Status = models.StatusBuyOrderPlaced
	result.BuyOrderID = buyOrder.OrderID

	buyFill, ok := e.waitForFill(ctx, opp.BuySymbol(), buyOrder.OrderID)
	if !ok {
		e.cancelBestEffort(ctx, opp.BuySymbol(), buyOrder.OrderID)
		return e.fail(result)
	}
	result.Status = models.StatusBuyOrderFilled
	result.BuyPrice = buyFill.Price

	sellOrder, err := e.client.PlaceOrder(ctx, opp.SellSymbol(), models.SideSell, tradeBase, decimal.Zero)
	if err != nil {
		e.metrics.OrdersFailed.Inc()
		e.log.Warn("sell order placement failed", zap.Error(err))
		return e.fail(result)
	}
	e.metrics.OrdersPlaced.Inc()
	result.Status = models.StatusSellOrderPlaced
	result.SellOrderID = sellOrder.OrderID

	sellFill, ok := e.waitForFill(ctx, opp.SellSymbol(), sellOrder.OrderID)
	if !ok {
		e.cancelBestEffort(ctx, opp.SellSymbol(), sellOrder.OrderID)
		return e.fail(result)
	}
	result.Status = models.StatusSellOrderFilled
	result.SellPrice = sellFill.Price

	result.TradeAmount = tradeBase
	result.Profit = tradeBase.Mul(sellFill.Price.Sub(buyFill.Price))
	if !buyFill.Price.IsZero() {
		result.ProfitPercentage = sellFill.Price.Sub(buyFill.Price).Div(buyFill.Price).Mul(decimal.NewFromInt(100))
	}
	result.Status = models.StatusCompleted
	result.EndTime = time.Now().UTC()

	e.log.Info("arbitrage completed",
		zap.String("base_asset", result.BaseAsset),
		zap.String("trade_amount", result.TradeAmount.String()),
		zap.String("buy_fill", buyFill.Price.String()),
		zap.String("sell_fill", sellFill.Price.String()),
		zap.String("profit", result.Profit.String()))
	return result
}

// waitForFill polls the order status once per poll interval, up to the poll
// cap. It reports the filled order, or false on timeout or status error.
func (e *Engine) waitForFill(ctx context.Context, symbol string, orderID uint64) (models.OrderInfo, bool) {
	for i := 0; i < e.maxFillPolls; i++ {
		order, err := e.client.OrderStatus(ctx, symbol, orderID)
		if err != nil {
			e.log.Warn("order status poll failed",
				zap.String("symbol", symbol),
				zap.Uint64("order_id", orderID),
				zap.Error(err))
			return models.OrderInfo{}, false
		}
		if order.Status == models.OrderFilled {
			return order, true
		}
		select {
		case <-ctx.Done():
			return models.OrderInfo{}, false
		case <-time.After(e.pollInterval):
		}
	}
	e.log.Warn("order did not fill within poll budget",
		zap.String("symbol", symbol),
		zap.Uint64("order_id", orderID),
		zap.Int("polls", e.maxFillPolls))
	return models.OrderInfo{}, false
}

func (e *Engine) cancelBestEffort(ctx context.Context, symbol string, orderID uint64) {
	if _, err := e.client.CancelOrder(ctx, symbol, orderID); err != nil {
		e.log.Warn("order cancel failed",
			zap.String("symbol", symbol),
			zap.Uint64("order_id", orderID),
			zap.Error(err))
	}
}

// fail zeroes the monetary fields and stamps the terminal Failed state. The
// order ids of whatever legs were placed are preserved.
func (e *Engine) fail(result *models.ArbitrageResult) *models.ArbitrageResult {
	result.BuyPrice = decimal.Zero
	result.SellPrice = decimal.Zero
	result.TradeAmount = decimal.Zero
	result.Profit = decimal.Zero
	result.ProfitPercentage = decimal.Zero
	result.Status = models.StatusFailed
	result.EndTime = time.Now().UTC()
	return result
}
