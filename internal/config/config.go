// Package config loads the bot's YAML configuration and the exchange
// credentials from the environment. Every option has a default; an empty
// path yields a fully defaulted config.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LoggingConfig    `yaml:"log"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Arbitrage  ArbitrageConfig  `yaml:"arbitrage"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Risk       RiskConfig       `yaml:"risk"`
	Database   DatabaseConfig   `yaml:"database"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExchangeConfig struct {
	BaseURL string        `yaml:"base_url"`
	WSURL   string        `yaml:"ws_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ArbitrageConfig struct {
	MinProfitPercentage float64 `yaml:"min_profit_percentage"`
	MaxTradeAmountUSDT  float64 `yaml:"max_trade_amount_usdt"`
	CheckIntervalMs     int     `yaml:"check_interval_ms"`
}

type StrategiesConfig struct {
	Enabled  []string       `yaml:"enabled"`
	TWAP     TWAPConfig     `yaml:"twap"`
	Depth    DepthConfig    `yaml:"depth"`
	Slippage SlippageConfig `yaml:"slippage"`
	Trend    TrendConfig    `yaml:"trend"`
}

type TWAPConfig struct {
	Slices          int `yaml:"slices"`
	IntervalSeconds int `yaml:"interval_seconds"`
}

type DepthConfig struct {
	DepthLevels  int     `yaml:"depth_levels"`
	MinLiquidity float64 `yaml:"min_liquidity"`
}

type SlippageConfig struct {
	MaxSlippagePct       float64 `yaml:"max_slippage_pct"`
	VolatilityWindowSize int     `yaml:"volatility_window_size"`
}

type TrendConfig struct {
	ShortWindow    int     `yaml:"short_window"`
	LongWindow     int     `yaml:"long_window"`
	TrendThreshold float64 `yaml:"trend_threshold"`
}

type RiskConfig struct {
	Enabled       []string           `yaml:"enabled"`
	DailyLoss     DailyLossConfig    `yaml:"daily_loss"`
	AbnormalPrice AbnormalConfig     `yaml:"abnormal_price"`
	Exposure      map[string]float64 `yaml:"exposure"`
	TimeWindow    TimeWindowConfig   `yaml:"time_window"`
	Frequency     FrequencyConfig    `yaml:"frequency"`
	Blacklist     []string           `yaml:"blacklist"`
}

type DailyLossConfig struct {
	MaxDailyLoss float64 `yaml:"max_daily_loss"`
}

type AbnormalConfig struct {
	WindowSize        int     `yaml:"window_size"`
	AbnormalThreshold float64 `yaml:"abnormal_threshold"`
	CooldownPeriodSec int     `yaml:"cooldown_period"`
}

type TimeWindowConfig struct {
	StartHour       int  `yaml:"start_hour"`
	StartMin        int  `yaml:"start_min"`
	EndHour         int  `yaml:"end_hour"`
	EndMin          int  `yaml:"end_min"`
	TradeOnWeekends bool `yaml:"trade_on_weekends"`
	// yaml cannot distinguish an explicit false from an absent section, so
	// defaults are applied only when the whole time_window block is omitted.
	configured bool
}

type FrequencyConfig struct {
	MinIntervalSeconds    int `yaml:"min_interval_seconds"`
	MaxTradesPerTimeframe int `yaml:"max_trades_per_timeframe"`
	TimeframeSeconds      int `yaml:"timeframe_seconds"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// TelegramConfig enables trade notifications. Token and chat id may also be
// supplied through the environment.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

var knownStrategies = map[string]bool{
	"simple": true, "twap": true, "depth": true, "slippage": true, "trend": true,
}

var knownControllers = map[string]bool{
	"loss-limit": true, "abnormal-price": true, "exposure": true,
	"time-window": true, "frequency": true, "blacklist": true,
}

// Load reads the config file at path, or returns pure defaults when path is
// empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		var probe struct {
			Risk struct {
				TimeWindow *TimeWindowConfig `yaml:"time_window"`
			} `yaml:"risk"`
		}
		if err := yaml.Unmarshal(data, &probe); err == nil && probe.Risk.TimeWindow != nil {
			cfg.Risk.TimeWindow.configured = true
		}
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = "https://api.binance.com"
	}
	if cfg.Exchange.WSURL == "" {
		cfg.Exchange.WSURL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.Exchange.Timeout == 0 {
		cfg.Exchange.Timeout = 10 * time.Second
	}
	if cfg.Arbitrage.MinProfitPercentage == 0 {
		cfg.Arbitrage.MinProfitPercentage = 0.1
	}
	if cfg.Arbitrage.MaxTradeAmountUSDT == 0 {
		cfg.Arbitrage.MaxTradeAmountUSDT = 100
	}
	if cfg.Arbitrage.CheckIntervalMs == 0 {
		cfg.Arbitrage.CheckIntervalMs = 1000
	}
	if len(cfg.Strategies.Enabled) == 0 {
		cfg.Strategies.Enabled = []string{"simple"}
	}
	if cfg.Strategies.TWAP.Slices == 0 {
		cfg.Strategies.TWAP.Slices = 5
	}
	if cfg.Strategies.TWAP.IntervalSeconds == 0 {
		cfg.Strategies.TWAP.IntervalSeconds = 60
	}
	if cfg.Strategies.Depth.DepthLevels == 0 {
		cfg.Strategies.Depth.DepthLevels = 20
	}
	if cfg.Strategies.Depth.MinLiquidity == 0 {
		cfg.Strategies.Depth.MinLiquidity = 1.0
	}
	if cfg.Strategies.Slippage.MaxSlippagePct == 0 {
		cfg.Strategies.Slippage.MaxSlippagePct = 0.5
	}
	if cfg.Strategies.Slippage.VolatilityWindowSize == 0 {
		cfg.Strategies.Slippage.VolatilityWindowSize = 20
	}
	if cfg.Strategies.Trend.ShortWindow == 0 {
		cfg.Strategies.Trend.ShortWindow = 10
	}
	if cfg.Strategies.Trend.LongWindow == 0 {
		cfg.Strategies.Trend.LongWindow = 30
	}
	if cfg.Strategies.Trend.TrendThreshold == 0 {
		cfg.Strategies.Trend.TrendThreshold = 1.0
	}
	if len(cfg.Risk.Enabled) == 0 {
		cfg.Risk.Enabled = []string{"loss-limit", "abnormal-price"}
	}
	if cfg.Risk.DailyLoss.MaxDailyLoss == 0 {
		cfg.Risk.DailyLoss.MaxDailyLoss = 50
	}
	if cfg.Risk.AbnormalPrice.WindowSize == 0 {
		cfg.Risk.AbnormalPrice.WindowSize = 30
	}
	if cfg.Risk.AbnormalPrice.AbnormalThreshold == 0 {
		cfg.Risk.AbnormalPrice.AbnormalThreshold = 5.0
	}
	if cfg.Risk.AbnormalPrice.CooldownPeriodSec == 0 {
		cfg.Risk.AbnormalPrice.CooldownPeriodSec = 300
	}
	if len(cfg.Risk.Exposure) == 0 {
		cfg.Risk.Exposure = map[string]float64{"BTC": 5, "ETH": 50}
	}
	if !cfg.Risk.TimeWindow.configured {
		cfg.Risk.TimeWindow = TimeWindowConfig{
			StartHour: 0, StartMin: 0,
			EndHour: 23, EndMin: 59,
			TradeOnWeekends: true,
			configured:      true,
		}
	}
	if cfg.Risk.Frequency.MinIntervalSeconds == 0 {
		cfg.Risk.Frequency.MinIntervalSeconds = 30
	}
	if cfg.Risk.Frequency.MaxTradesPerTimeframe == 0 {
		cfg.Risk.Frequency.MaxTradesPerTimeframe = 10
	}
	if cfg.Risk.Frequency.TimeframeSeconds == 0 {
		cfg.Risk.Frequency.TimeframeSeconds = 600
	}
}

func validate(cfg *Config) error {
	if cfg.Arbitrage.MinProfitPercentage < 0 {
		return fmt.Errorf("arbitrage.min_profit_percentage must not be negative")
	}
	if cfg.Arbitrage.MaxTradeAmountUSDT <= 0 {
		return fmt.Errorf("arbitrage.max_trade_amount_usdt must be > 0")
	}
	if cfg.Arbitrage.CheckIntervalMs <= 0 {
		return fmt.Errorf("arbitrage.check_interval_ms must be > 0")
	}
	for _, name := range cfg.Strategies.Enabled {
		if !knownStrategies[name] {
			return fmt.Errorf("unknown strategy %q", name)
		}
	}
	for _, name := range cfg.Risk.Enabled {
		if !knownControllers[name] {
			return fmt.Errorf("unknown risk controller %q", name)
		}
	}
	for _, symbol := range cfg.Risk.Blacklist {
		if !strings.HasSuffix(symbol, "USDT") && !strings.HasSuffix(symbol, "USDC") {
			return fmt.Errorf("blacklist symbol %q must end in USDT or USDC", symbol)
		}
	}
	if cfg.Strategies.TWAP.Slices < 1 {
		return fmt.Errorf("strategies.twap.slices must be >= 1")
	}
	if cfg.Strategies.Trend.ShortWindow > cfg.Strategies.Trend.LongWindow {
		return fmt.Errorf("strategies.trend.short_window must not exceed long_window")
	}
	return nil
}

// Env holds credentials and overrides sourced from the process environment,
// optionally seeded from a .env file.
type Env struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	DatabaseURL    string
	TelegramToken  string
	TelegramChatID string
}

// LoadEnv reads a .env file if one exists, then the environment. A missing
// .env file is not an error.
func LoadEnv() Env {
	_ = godotenv.Load()
	return Env{
		APIKey:         os.Getenv("BINANCE_API_KEY"),
		APISecret:      os.Getenv("BINANCE_API_SECRET"),
		BaseURL:        os.Getenv("BINANCE_API_URL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// Dec converts a config float to Decimal. Values a Decimal cannot represent
// fall back to zero.
func Dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
