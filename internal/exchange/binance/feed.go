package binance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"stable-arb-bot/internal/models"
)

// TickerFeed maintains a websocket subscription to the bookTicker stream for
// a set of symbols and caches the midpoint of the best bid and ask. Prices
// older than staleAfter are treated as missing so callers fall back to REST.
type TickerFeed struct {
	url            string
	reconnectDelay time.Duration
	staleAfter     time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	prices map[string]models.Price
	nextID int
	subs   []string
}

func NewTickerFeed(wsURL string, symbols []string, log *zap.Logger) *TickerFeed {
	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		streams = append(streams, strings.ToLower(sym)+"@bookTicker")
	}
	return &TickerFeed{
		url:            wsURL,
		reconnectDelay: 5 * time.Second,
		staleAfter:     10 * time.Second,
		log:            log,
		prices:         make(map[string]models.Price),
		nextID:         1,
		subs:           streams,
	}
}

// Price returns the cached midpoint for symbol if a fresh tick is available.
func (f *TickerFeed) Price(symbol string) (models.Price, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[symbol]
	if !ok || time.Since(price.Timestamp) > f.staleAfter {
		return models.Price{}, false
	}
	return price, true
}

// Run connects, subscribes, and consumes ticks until ctx is cancelled,
// reconnecting after transient read failures.
func (f *TickerFeed) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn("ticker feed connect failed", zap.Error(err))
		} else {
			err := f.readLoop(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn("ticker feed read loop ended", zap.Error(err))
			f.resetConn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *TickerFeed) connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return err
	}
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": f.subs,
		"id":     f.nextID,
	}
	f.nextID++
	data, err := json.Marshal(sub)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "marshal")
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe")
		return err
	}
	f.conn = conn
	return nil
}

func (f *TickerFeed) readLoop(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		f.handleTick(data)
	}
}

func (f *TickerFeed) handleTick(data []byte) {
	var tick struct {
		Symbol string `json:"s"`
		BidPx  string `json:"b"`
		AskPx  string `json:"a"`
	}
	if err := json.Unmarshal(data, &tick); err != nil || tick.Symbol == "" {
		return
	}
	bid, err := decimal.NewFromString(tick.BidPx)
	if err != nil {
		return
	}
	ask, err := decimal.NewFromString(tick.AskPx)
	if err != nil {
		return
	}
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	f.mu.Lock()
	f.prices[tick.Symbol] = models.Price{Symbol: tick.Symbol, Price: mid, Timestamp: time.Now().UTC()}
	f.mu.Unlock()
}

func (f *TickerFeed) resetConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close(websocket.StatusNormalClosure, "reset")
		f.conn = nil
	}
}
