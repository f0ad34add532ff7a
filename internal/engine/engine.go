// Package engine runs the arbitrage loop: fetch both quote prices, let every
// enabled strategy propose an opportunity, gate the best one through risk,
// then execute the two legs and record the outcome.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stable-arb-bot/internal/alerts"
	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/history"
	"stable-arb-bot/internal/metrics"
	"stable-arb-bot/internal/models"
	"stable-arb-bot/internal/risk"
	"stable-arb-bot/internal/strategy"

	"github.com/shopspring/decimal"
)

const (
	defaultMaxFillPolls = 10
	defaultPollInterval = time.Second
)

type Config struct {
	BaseAsset      string
	MaxTradeAmount decimal.Decimal
	CheckInterval  time.Duration
}

// Alerter delivers trade notifications. Send errors are logged, never fatal.
type Alerter interface {
	Send(ctx context.Context, message string) error
}

type Engine struct {
	cfg        Config
	client     exchange.Client
	strategies []strategy.Strategy
	riskMgr    *risk.Manager
	sink       history.Sink
	metrics    *metrics.Metrics
	alerter    Alerter
	log        *zap.Logger

	// Poll discipline for order fills. Overridable in tests.
	maxFillPolls int
	pollInterval time.Duration
}

// New assembles an engine. sink may be nil when no history store is
// configured.
func New(cfg Config, client exchange.Client, strategies []strategy.Strategy, riskMgr *risk.Manager, sink history.Sink, m *metrics.Metrics, log *zap.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		client:       client,
		strategies:   strategies,
		riskMgr:      riskMgr,
		sink:         sink,
		metrics:      m,
		log:          log,
		maxFillPolls: defaultMaxFillPolls,
		pollInterval: defaultPollInterval,
	}
}

// SetAlerter installs a trade notification channel. Optional.
func (e *Engine) SetAlerter(a Alerter) { e.alerter = a }

// Run ticks until ctx is cancelled. Tick errors are logged and the loop
// continues.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started",
		zap.String("base_asset", e.cfg.BaseAsset),
		zap.Int("strategies", len(e.strategies)),
		zap.Duration("check_interval", e.cfg.CheckInterval))
	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		if err := e.Tick(ctx); err != nil {
			e.log.Warn("tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one full evaluate-and-execute cycle.
func (e *Engine) Tick(ctx context.Context) error {
	usdtSymbol := models.SymbolFor(e.cfg.BaseAsset, models.QuoteUSDT)
	usdcSymbol := models.SymbolFor(e.cfg.BaseAsset, models.QuoteUSDC)

	usdtPrice, err := e.client.Price(ctx, usdtSymbol)
	if err != nil {
		return fmt.Errorf("fetch %s price: %w", usdtSymbol, err)
	}
	usdcPrice, err := e.client.Price(ctx, usdcSymbol)
	if err != nil {
		return fmt.Errorf("fetch %s price: %w", usdcSymbol, err)
	}

	best := e.bestOpportunity(ctx, usdtPrice, usdcPrice)
	if best == nil {
		// No strategy accepted anything; the raw spot spread still goes to
		// risk at full size.
		best = strategy.SpotOpportunity(e.cfg.BaseAsset, usdtPrice.Price, usdcPrice.Price, e.cfg.MaxTradeAmount)
		e.log.Debug("falling back to spot opportunity",
			zap.String("profit_pct", best.ProfitPercentage.String()))
	}
	e.metrics.OpportunitiesFound.Inc()

	allowed, reasons := e.riskMgr.ValidateOpportunity(ctx, best)
	if !allowed {
		e.metrics.OpportunitiesRejected.Inc()
		e.log.Warn("opportunity rejected by risk",
			zap.String("base_asset", best.BaseAsset),
			zap.String("profit_pct", best.ProfitPercentage.String()),
			zap.Strings("reasons", reasons))
		return nil
	}

	e.log.Info("executing opportunity",
		zap.String("base_asset", best.BaseAsset),
		zap.String("buy_quote", best.BuyQuote.String()),
		zap.String("sell_quote", best.SellQuote.String()),
		zap.String("buy_price", best.BuyPrice.String()),
		zap.String("sell_price", best.SellPrice.String()),
		zap.String("amount", best.MaxTradeAmount.String()))

	result := e.executeArbitrage(ctx, best)
	if result.Status == models.StatusCompleted {
		e.metrics.TradesCompleted.Inc()
	} else {
		e.metrics.TradesFailed.Inc()
	}
	if err := e.riskMgr.RecordResult(ctx, result); err != nil {
		return fmt.Errorf("record result to risk: %w", err)
	}
	if e.sink != nil {
		if _, err := e.sink.Record(ctx, result); err != nil {
			e.metrics.SinkErrors.Inc()
			e.log.Error("history sink record failed", zap.Error(err))
		}
	}
	if e.alerter != nil {
		if err := e.alerter.Send(ctx, alerts.TradeMessage(result)); err != nil {
			e.log.Warn("trade alert failed", zap.Error(err))
		}
	}
	return nil
}

// bestOpportunity runs every strategy and returns the validated opportunity
// with the strictly highest profit percentage, or nil when none accepted.
func (e *Engine) bestOpportunity(ctx context.Context, usdtPrice, usdcPrice models.Price) *models.ArbitrageOpportunity {
	var best *models.ArbitrageOpportunity
	for _, s := range e.strategies {
		opp, err := s.FindOpportunity(ctx, e.cfg.BaseAsset, usdtPrice, usdcPrice)
		if err != nil {
			e.log.Warn("strategy errored, skipping",
				zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		if opp == nil {
			continue
		}
		ok, err := s.Validate(ctx, opp)
		if err != nil {
			e.log.Warn("strategy validation errored, skipping",
				zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		if !ok {
			e.log.Debug("opportunity failed strategy validation",
				zap.String("strategy", s.Name()),
				zap.String("profit_pct", opp.ProfitPercentage.String()))
			continue
		}
		if best == nil || opp.ProfitPercentage.GreaterThan(best.ProfitPercentage) {
			best = opp
		}
	}
	return best
}
