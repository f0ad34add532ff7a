// Package binance implements the exchange client against the Binance spot
// REST API, with an optional websocket ticker feed that serves cached prices
// between REST calls.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/models"
)

type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	log       *zap.Logger
	feed      *TickerFeed
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetFeed attaches a websocket ticker feed. While the feed has a fresh price
// for a symbol, Price is served from it without a REST round trip.
func (c *Client) SetFeed(feed *TickerFeed) {
	c.feed = feed
}

func (c *Client) SymbolInfo(ctx context.Context, symbol string) (models.Symbol, error) {
	data, err := c.public(ctx, "/api/v3/exchangeInfo", url.Values{"symbol": {symbol}})
	if err != nil {
		return models.Symbol{}, err
	}
	var resp struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Filters    []struct {
				FilterType  string `json:"filterType"`
				MinNotional string `json:"minNotional"`
				MinQty      string `json:"minQty"`
				StepSize    string `json:"stepSize"`
				TickSize    string `json:"tickSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.Symbol{}, fmt.Errorf("%w: %v", exchange.ErrBadResponse, err)
	}
	for _, sym := range resp.Symbols {
		if sym.Symbol != symbol {
			continue
		}
		info := models.Symbol{BaseAsset: sym.BaseAsset, QuoteAsset: sym.QuoteAsset}
		for _, f := range sym.Filters {
			switch f.FilterType {
			case "MIN_NOTIONAL", "NOTIONAL":
				info.MinNotional = parseDecimal(f.MinNotional)
			case "LOT_SIZE":
				info.MinQty = parseDecimal(f.MinQty)
				info.StepSize = parseDecimal(f.StepSize)
			case "PRICE_FILTER":
				info.TickSize = parseDecimal(f.TickSize)
			}
		}
		return info, nil
	}
	return models.Symbol{}, fmt.Errorf("%w: %s", exchange.ErrSymbolNotFound, symbol)
}

func (c *Client) Price(ctx context.Context, symbol string) (models.Price, error) {
	if c.feed != nil {
		if price, ok := c.feed.Price(symbol); ok {
			return price, nil
		}
	}
	data, err := c.public(ctx, "/api/v3/ticker/price", url.Values{"symbol": {symbol}})
	if err != nil {
		return models.Price{}, err
	}
	var resp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.Price{}, fmt.Errorf("%w: %v", exchange.ErrBadResponse, err)
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return models.Price{}, fmt.Errorf("%w: price %q", exchange.ErrBadResponse, resp.Price)
	}
	return models.Price{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}, nil
}

func (c *Client) OrderBook(ctx context.Context, symbol string, depth int) (models.OrderBook, error) {
	params := url.Values{"symbol": {symbol}}
	if depth > 0 {
		params.Set("limit", strconv.Itoa(depth))
	}
	data, err := c.public(ctx, "/api/v3/depth", params)
	if err != nil {
		return models.OrderBook{}, err
	}
	var resp struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.OrderBook{}, fmt.Errorf("%w: %v", exchange.ErrBadResponse, err)
	}
	book := models.OrderBook{Symbol: symbol, Timestamp: time.Now().UTC()}
	book.Bids, err = parseLevels(resp.Bids)
	if err != nil {
		return models.OrderBook{}, err
	}
	book.Asks, err = parseLevels(resp.Asks)
	if err != nil {
		return models.OrderBook{}, err
	}
	return book, nil
}

func (c *Client) PlaceOrder(ctx context.Context, symbol string, side models.Side, qty, limit decimal.Decimal) (models.OrderInfo, error) {
	params := url.Values{
		"symbol":   {symbol},
		"side":     {string(side)},
		"quantity": {qty.String()},
	}
	if limit.IsZero() {
		params.Set("type", "MARKET")
	} else {
		params.Set("type", "LIMIT")
		params.Set("price", limit.String())
		params.Set("timeInForce", "GTC")
	}
	data, err := c.signed(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.OrderInfo{}, err
	}
	order, err := parseOrder(data, symbol)
	if err != nil {
		return models.OrderInfo{}, err
	}
	order.Side = side
	return order, nil
}

func (c *Client) OrderStatus(ctx context.Context, symbol string, orderID uint64) (models.OrderInfo, error) {
	params := url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatUint(orderID, 10)},
	}
	data, err := c.signed(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return models.OrderInfo{}, err
	}
	return parseOrder(data, symbol)
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID uint64) (models.OrderInfo, error) {
	params := url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatUint(orderID, 10)},
	}
	data, err := c.signed(ctx, http.MethodDelete, "/api/v3/order", params)
	if err != nil {
		return models.OrderInfo{}, err
	}
	order, err := parseOrder(data, symbol)
	if err != nil {
		return models.OrderInfo{}, err
	}
	order.Status = models.OrderCancelled
	return order, nil
}

func (c *Client) AccountBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	data, err := c.signed(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return decimal.Zero, err
	}
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", exchange.ErrBadResponse, err)
	}
	for _, bal := range resp.Balances {
		if bal.Asset == asset {
			free, err := decimal.NewFromString(bal.Free)
			if err != nil {
				return decimal.Zero, fmt.Errorf("%w: balance %q", exchange.ErrBadResponse, bal.Free)
			}
			return free, nil
		}
	}
	return decimal.Zero, fmt.Errorf("balance not found for asset %s", asset)
}

func (c *Client) public(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) signed(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := canonicalQuery(params)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// canonicalQuery sorts keys so the signature matches a stable encoding.
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+url.QueryEscape(params.Get(k)))
	}
	return strings.Join(pairs, "&")
}

func parseLevels(raw [][]string) ([]models.BookLevel, error) {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			return nil, fmt.Errorf("%w: book level %v", exchange.ErrBadResponse, entry)
		}
		price, err := decimal.NewFromString(entry[0])
		if err != nil {
			return nil, fmt.Errorf("%w: level price %q", exchange.ErrBadResponse, entry[0])
		}
		qty, err := decimal.NewFromString(entry[1])
		if err != nil {
			return nil, fmt.Errorf("%w: level qty %q", exchange.ErrBadResponse, entry[1])
		}
		levels = append(levels, models.BookLevel{Price: price, Qty: qty})
	}
	return levels, nil
}

func parseOrder(data []byte, symbol string) (models.OrderInfo, error) {
	var resp struct {
		OrderID uint64 `json:"orderId"`
		Price   string `json:"price"`
		OrigQty string `json:"origQty"`
		Side    string `json:"side"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.OrderInfo{}, fmt.Errorf("%w: %v", exchange.ErrBadResponse, err)
	}
	if resp.OrderID == 0 {
		return models.OrderInfo{}, fmt.Errorf("%w: missing order id", exchange.ErrBadResponse)
	}
	side := models.SideBuy
	if resp.Side == string(models.SideSell) {
		side = models.SideSell
	}
	return models.OrderInfo{
		OrderID:   resp.OrderID,
		Symbol:    symbol,
		Price:     parseDecimal(resp.Price),
		Qty:       parseDecimal(resp.OrigQty),
		Side:      side,
		Status:    parseStatus(resp.Status),
		Timestamp: time.Now().UTC(),
	}, nil
}

func parseStatus(s string) models.OrderStatus {
	switch models.OrderStatus(s) {
	case models.OrderPartiallyFilled, models.OrderFilled, models.OrderCancelled, models.OrderRejected, models.OrderExpired:
		return models.OrderStatus(s)
	default:
		return models.OrderNew
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
