package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stable-arb-bot/internal/alerts"
	"stable-arb-bot/internal/analytics"
	"stable-arb-bot/internal/config"
	"stable-arb-bot/internal/engine"
	"stable-arb-bot/internal/exchange"
	"stable-arb-bot/internal/exchange/binance"
	"stable-arb-bot/internal/exchange/mock"
	"stable-arb-bot/internal/history"
	"stable-arb-bot/internal/logging"
	"stable-arb-bot/internal/metrics"
	"stable-arb-bot/internal/risk"
	"stable-arb-bot/internal/strategy"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "live":
		err = runLive(os.Args[2:])
	case "simulate":
		err = runSimulate(os.Args[2:])
	case "analytics":
		err = runAnalytics(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: bot <command> [flags]

commands:
  live       trade on the exchange with real credentials
  simulate   run against a mock exchange with generated prices
  analytics  report on recorded trade history`)
}

// botFlags are the options shared by the live and simulate commands.
type botFlags struct {
	baseAsset   string
	logLevel    string
	configFile  string
	dbURL       string
	strategies  string
	controllers string
	minProfit   float64
	maxAmount   float64
	intervalMs  int
}

func registerBotFlags(fs *flag.FlagSet) *botFlags {
	f := &botFlags{}
	fs.StringVar(&f.baseAsset, "base-asset", "BTC", "base asset to arbitrage")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.configFile, "config-file", "", "path to YAML config file")
	fs.StringVar(&f.dbURL, "db-url", "", "history database URL (sqlite path or postgres URL)")
	fs.StringVar(&f.strategies, "strategies", "", "comma separated strategies (simple,twap,depth,slippage,trend)")
	fs.StringVar(&f.controllers, "risk-controllers", "", "comma separated controllers (loss-limit,abnormal-price,exposure,time-window,frequency,blacklist)")
	fs.Float64Var(&f.minProfit, "min-profit", 0, "minimum profit percentage")
	fs.Float64Var(&f.maxAmount, "max-amount", 0, "maximum trade amount in quote units")
	fs.IntVar(&f.intervalMs, "interval", 0, "check interval in milliseconds")
	return f
}

// loadConfig merges the YAML config with explicitly set command line flags.
// Flags win over the file, the file wins over defaults.
func loadConfig(fs *flag.FlagSet, f *botFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "db-url":
			cfg.Database.URL = f.dbURL
		case "strategies":
			cfg.Strategies.Enabled = splitList(f.strategies)
		case "risk-controllers":
			cfg.Risk.Enabled = splitList(f.controllers)
		case "min-profit":
			cfg.Arbitrage.MinProfitPercentage = f.minProfit
		case "max-amount":
			cfg.Arbitrage.MaxTradeAmountUSDT = f.maxAmount
		case "interval":
			cfg.Arbitrage.CheckIntervalMs = f.intervalMs
		}
	})
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildStrategies(cfg *config.Config, client exchange.Client, log *zap.Logger) ([]strategy.Strategy, error) {
	minProfit := config.Dec(cfg.Arbitrage.MinProfitPercentage)
	maxAmount := config.Dec(cfg.Arbitrage.MaxTradeAmountUSDT)

	var out []strategy.Strategy
	for _, name := range cfg.Strategies.Enabled {
		switch name {
		case "simple":
			out = append(out, strategy.NewSimple(minProfit, maxAmount, log))
		case "twap":
			out = append(out, strategy.NewTWAP(minProfit, maxAmount, cfg.Strategies.TWAP.Slices, log))
		case "depth":
			out = append(out, strategy.NewOrderBookDepth(client, minProfit, maxAmount,
				cfg.Strategies.Depth.DepthLevels, config.Dec(cfg.Strategies.Depth.MinLiquidity), log))
		case "slippage":
			out = append(out, strategy.NewSlippageControl(minProfit, maxAmount,
				config.Dec(cfg.Strategies.Slippage.MaxSlippagePct), cfg.Strategies.Slippage.VolatilityWindowSize, log))
		case "trend":
			out = append(out, strategy.NewTrendFollowing(minProfit, maxAmount,
				cfg.Strategies.Trend.ShortWindow, cfg.Strategies.Trend.LongWindow,
				config.Dec(cfg.Strategies.Trend.TrendThreshold), log))
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
	return out, nil
}

func buildRiskManager(cfg *config.Config, client exchange.Client, log *zap.Logger) (*risk.Manager, error) {
	mgr := risk.NewManager(log)
	for _, name := range cfg.Risk.Enabled {
		switch name {
		case "loss-limit":
			mgr.Add(risk.NewDailyLossLimit(config.Dec(cfg.Risk.DailyLoss.MaxDailyLoss), log))
		case "abnormal-price":
			mgr.Add(risk.NewAbnormalPrice(cfg.Risk.AbnormalPrice.WindowSize,
				config.Dec(cfg.Risk.AbnormalPrice.AbnormalThreshold),
				time.Duration(cfg.Risk.AbnormalPrice.CooldownPeriodSec)*time.Second, log))
		case "exposure":
			exp := risk.NewExposure(client, log)
			for asset, max := range cfg.Risk.Exposure {
				exp.SetMaxExposure(asset, config.Dec(max))
			}
			mgr.Add(exp)
		case "time-window":
			tw := cfg.Risk.TimeWindow
			ctrl, err := risk.NewTimeWindow(tw.StartHour, tw.StartMin, tw.EndHour, tw.EndMin, tw.TradeOnWeekends)
			if err != nil {
				return nil, fmt.Errorf("time-window: %w", err)
			}
			mgr.Add(ctrl)
		case "frequency":
			mgr.Add(risk.NewFrequency(
				time.Duration(cfg.Risk.Frequency.MinIntervalSeconds)*time.Second,
				cfg.Risk.Frequency.MaxTradesPerTimeframe,
				time.Duration(cfg.Risk.Frequency.TimeframeSeconds)*time.Second, log))
		case "blacklist":
			bl := risk.NewPairBlacklist(log)
			for _, symbol := range cfg.Risk.Blacklist {
				bl.AddPair(symbol)
			}
			mgr.Add(bl)
		default:
			return nil, fmt.Errorf("unknown risk controller %q", name)
		}
	}
	return mgr, nil
}

func openStore(cfg *config.Config, env config.Env, log *zap.Logger) (*history.SQLStore, error) {
	url := cfg.Database.URL
	if url == "" {
		url = env.DatabaseURL
	}
	if url == "" {
		url = "stable-arb-bot.db"
	}
	return history.Open(url, log)
}

func runLive(args []string) error {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	f := registerBotFlags(fs)
	metricsAddr := fs.String("metrics-addr", ":9090", "prometheus metrics listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env := config.LoadEnv()
	cfg, err := loadConfig(fs, f)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)
	defer log.Sync()

	if env.APIKey == "" || env.APISecret == "" {
		return errors.New("BINANCE_API_KEY and BINANCE_API_SECRET must be set for live trading")
	}
	baseURL := cfg.Exchange.BaseURL
	if env.BaseURL != "" {
		baseURL = env.BaseURL
	}

	client := binance.New(baseURL, env.APIKey, env.APISecret, cfg.Exchange.Timeout, log)
	symbols := []string{f.baseAsset + "USDT", f.baseAsset + "USDC"}
	feed := binance.NewTickerFeed(cfg.Exchange.WSURL, symbols, log)
	client.SetFeed(feed)

	strategies, err := buildStrategies(cfg, client, log)
	if err != nil {
		return err
	}
	riskMgr, err := buildRiskManager(cfg, client, log)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, env, log)
	if err != nil {
		return err
	}
	defer store.Close()

	prom := metrics.NewPrometheus()
	eng := engine.New(engine.Config{
		BaseAsset:      f.baseAsset,
		MaxTradeAmount: config.Dec(cfg.Arbitrage.MaxTradeAmountUSDT),
		CheckInterval:  time.Duration(cfg.Arbitrage.CheckIntervalMs) * time.Millisecond,
	}, client, strategies, riskMgr, store, prom.Metrics, log)

	if cfg.Telegram.Enabled {
		tg := cfg.Telegram
		if env.TelegramToken != "" {
			tg.Token = env.TelegramToken
		}
		if env.TelegramChatID != "" {
			tg.ChatID = env.TelegramChatID
		}
		eng.SetAlerter(alerts.NewTelegram(tg, log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: *metricsAddr, Handler: prom.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feed.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	log.Info("live trading started",
		zap.String("base_asset", f.baseAsset),
		zap.Strings("strategies", cfg.Strategies.Enabled),
		zap.Strings("risk_controllers", cfg.Risk.Enabled))
	return g.Wait()
}

func runSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	f := registerBotFlags(fs)
	runtimeSec := fs.Int("runtime", 60, "simulation duration in seconds")
	volatility := fs.Float64("volatility", 1.0, "max price move per tick, percent")
	oppProb := fs.Float64("opportunity-probability", 30, "chance per tick of a cross market spread, percent")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env := config.LoadEnv()
	cfg, err := loadConfig(fs, f)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)
	defer log.Sync()

	client := mock.New()
	strategies, err := buildStrategies(cfg, client, log)
	if err != nil {
		return err
	}
	riskMgr, err := buildRiskManager(cfg, client, log)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, env, log)
	if err != nil {
		return err
	}
	defer store.Close()

	checkInterval := time.Duration(cfg.Arbitrage.CheckIntervalMs) * time.Millisecond
	sim := mock.NewSimulator(client, f.baseAsset, *volatility, *oppProb, checkInterval, log)
	eng := engine.New(engine.Config{
		BaseAsset:      f.baseAsset,
		MaxTradeAmount: config.Dec(cfg.Arbitrage.MaxTradeAmountUSDT),
		CheckInterval:  checkInterval,
	}, client, strategies, riskMgr, store, metrics.NewNoop(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*runtimeSec)*time.Second)
	defer cancel()

	log.Info("simulation started",
		zap.String("base_asset", f.baseAsset),
		zap.Int("runtime_sec", *runtimeSec),
		zap.Float64("volatility", *volatility),
		zap.Float64("opportunity_probability", *oppProb))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info("simulation finished")
	return nil
}

func runAnalytics(args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	logLevel := fs.String("log-level", "info", "log level")
	configFile := fs.String("config-file", "", "path to YAML config file")
	dbURL := fs.String("db-url", "", "history database URL")
	timeRange := fs.String("time-range", "last7days", "today, yesterday, last7days, last30days, thismonth, lastmonth, alltime or custom")
	startDate := fs.String("start-date", "", "custom range start, YYYY-MM-DD")
	endDate := fs.String("end-date", "", "custom range end, YYYY-MM-DD")
	exportFormat := fs.String("export-format", "json", "report format: json or csv")
	exportPath := fs.String("export-path", "./reports", "directory for exported reports")
	topAssets := fs.Int("top-assets", 10, "number of assets in the per asset breakdown")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env := config.LoadEnv()
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	cfg.Log.Level = *logLevel
	if *dbURL != "" {
		cfg.Database.URL = *dbURL
	}
	log := logging.New(cfg.Log)
	defer log.Sync()

	var start, end time.Time
	if *startDate != "" {
		if start, err = time.ParseInLocation("2006-01-02", *startDate, time.Local); err != nil {
			return fmt.Errorf("parse start-date: %w", err)
		}
	}
	if *endDate != "" {
		if end, err = time.ParseInLocation("2006-01-02", *endDate, time.Local); err != nil {
			return fmt.Errorf("parse end-date: %w", err)
		}
		end = end.AddDate(0, 0, 1)
	}
	rng, err := analytics.ParseTimeRange(*timeRange, start, end)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, env, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := analytics.NewManager(store, *topAssets, log)
	report, err := mgr.GenerateReport(ctx, rng)
	if err != nil {
		return err
	}

	switch *exportFormat {
	case "json":
		path, err := analytics.ExportJSON(report, *exportPath)
		if err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", path)
	case "csv":
		if err := analytics.ExportCSV(report, *exportPath); err != nil {
			return err
		}
		fmt.Printf("reports written to %s\n", *exportPath)
	default:
		return fmt.Errorf("unknown export format %q", *exportFormat)
	}
	return nil
}
