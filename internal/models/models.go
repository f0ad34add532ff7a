// Package models holds the market data and trade lifecycle types shared by
// the strategies, risk controllers and the arbitrage engine. All money and
// price values are decimal to keep quote arithmetic exact.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteCurrency is one of the two stablecoin quote markets an asset trades
// against.
type QuoteCurrency string

const (
	QuoteUSDT QuoteCurrency = "USDT"
	QuoteUSDC QuoteCurrency = "USDC"
)

func (q QuoteCurrency) String() string { return string(q) }

// SymbolFor builds the exchange pair name, e.g. ("BTC", USDT) -> "BTCUSDT".
func SymbolFor(baseAsset string, quote QuoteCurrency) string {
	return baseAsset + string(quote)
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// Symbol describes a tradable pair and its exchange filters.
type Symbol struct {
	BaseAsset   string
	QuoteAsset  string
	MinNotional decimal.Decimal
	MinQty      decimal.Decimal
	StepSize    decimal.Decimal
	TickSize    decimal.Decimal
}

// Price is a spot price sample for one pair.
type Price struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// OrderBook is a depth snapshot. Bids are ordered descending by price, asks
// ascending.
type OrderBook struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// OrderInfo mirrors the exchange view of a single order.
type OrderInfo struct {
	OrderID   uint64
	Symbol    string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Side      Side
	Status    OrderStatus
	Timestamp time.Time
}

// ArbitrageOpportunity is a candidate two-leg trade: buy the base asset on the
// cheap quote market and sell it on the expensive one. MaxTradeAmount is
// denominated in the buy-side quote currency.
type ArbitrageOpportunity struct {
	BaseAsset        string
	BuyQuote         QuoteCurrency
	SellQuote        QuoteCurrency
	BuyPrice         decimal.Decimal
	SellPrice        decimal.Decimal
	PriceDiff        decimal.Decimal
	ProfitPercentage decimal.Decimal
	MaxTradeAmount   decimal.Decimal
	Timestamp        time.Time
}

var hundred = decimal.NewFromInt(100)

// NewOpportunity derives the spread fields from the leg prices. The profit
// percentage is zero when the buy price is zero.
func NewOpportunity(baseAsset string, buyQuote, sellQuote QuoteCurrency, buyPrice, sellPrice, maxTradeAmount decimal.Decimal) ArbitrageOpportunity {
	priceDiff := sellPrice.Sub(buyPrice)
	profitPct := decimal.Zero
	if !buyPrice.IsZero() {
		profitPct = priceDiff.Div(buyPrice).Mul(hundred)
	}
	return ArbitrageOpportunity{
		BaseAsset:        baseAsset,
		BuyQuote:         buyQuote,
		SellQuote:        sellQuote,
		BuyPrice:         buyPrice,
		SellPrice:        sellPrice,
		PriceDiff:        priceDiff,
		ProfitPercentage: profitPct,
		MaxTradeAmount:   maxTradeAmount,
		Timestamp:        time.Now().UTC(),
	}
}

// TradeAmountBase converts MaxTradeAmount from quote to base units at the buy
// price.
func (o ArbitrageOpportunity) TradeAmountBase() decimal.Decimal {
	if o.BuyPrice.IsZero() {
		return decimal.Zero
	}
	return o.MaxTradeAmount.Div(o.BuyPrice)
}

// BuySymbol returns the pair name of the cheap leg.
func (o ArbitrageOpportunity) BuySymbol() string {
	return SymbolFor(o.BaseAsset, o.BuyQuote)
}

// SellSymbol returns the pair name of the expensive leg.
func (o ArbitrageOpportunity) SellSymbol() string {
	return SymbolFor(o.BaseAsset, o.SellQuote)
}

// ArbitrageStatus is the lifecycle state of a two-leg execution.
type ArbitrageStatus string

const (
	StatusIdentified      ArbitrageStatus = "Identified"
	StatusBuyOrderPlaced  ArbitrageStatus = "BuyOrderPlaced"
	StatusBuyOrderFilled  ArbitrageStatus = "BuyOrderFilled"
	StatusSellOrderPlaced ArbitrageStatus = "SellOrderPlaced"
	StatusSellOrderFilled ArbitrageStatus = "SellOrderFilled"
	StatusCompleted       ArbitrageStatus = "Completed"
	StatusFailed          ArbitrageStatus = "Failed"
)

// ArbitrageResult is the record of one attempted arbitrage. TradeAmount is in
// base units; Profit is in the sell-side quote currency. Order IDs are zero
// until the corresponding leg has been submitted.
type ArbitrageResult struct {
	BaseAsset        string
	BuyQuote         string
	SellQuote        string
	BuyPrice         decimal.Decimal
	SellPrice        decimal.Decimal
	TradeAmount      decimal.Decimal
	Profit           decimal.Decimal
	ProfitPercentage decimal.Decimal
	BuyOrderID       uint64
	SellOrderID      uint64
	Status           ArbitrageStatus
	StartTime        time.Time
	EndTime          time.Time
}
