package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/connectors/binance"
	"github.com/b8kings0ga/ctrader/internal/connectors/redisfeed"
	"github.com/b8kings0ga/ctrader/internal/exchange"
	"github.com/b8kings0ga/ctrader/internal/execution"
	"github.com/b8kings0ga/ctrader/internal/predict"
	"github.com/b8kings0ga/ctrader/internal/pricebook"
	"github.com/b8kings0ga/ctrader/internal/risk"
	"github.com/b8kings0ga/ctrader/internal/strategy"
	"github.com/b8kings0ga/ctrader/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Bot owns the application lifecycle: feed, strategy, execution.
type Bot struct {
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Bot {
	return &Bot{cfg: cfg, log: log}
}

// Run wires the pipeline and blocks until ctx is done or a signal arrives.
// One goroutine consumes the market stream and processes each event to
// completion; signals flow to the executor over a bounded channel with a
// blocking send, so a slow execution side stalls detection instead of
// dropping trades.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			b.log.Warn("received signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	book := pricebook.New(b.cfg.Symbols, b.log)

	var scorer predict.Scorer
	if b.cfg.Strategy.PredictionThreshold > 0 {
		scorer = predict.NewConstScorer()
	}

	strat, err := strategy.NewRegistry().New(b.cfg.Strategy.ID, b.cfg, book, scorer, b.log)
	if err != nil {
		return err
	}

	var mirror *redisfeed.Mirror
	if b.cfg.Redis.Addr != "" {
		mirror = redisfeed.NewMirror(b.cfg, b.log)
		defer mirror.Close()
		b.log.Info("redis mirror enabled", zap.String("addr", b.cfg.Redis.Addr))
	}

	sigCh := make(chan types.Signal, b.cfg.Timings.SignalBuffer)
	strat.SetSignalCallback(func(s types.Signal) {
		if mirror != nil {
			mirror.PublishSignal(ctx, s)
		}
		select {
		case sigCh <- s:
		case <-ctx.Done():
		}
	})

	if b.cfg.DryRun {
		b.log.Warn("DRY-RUN: no real orders will be sent")
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case s := <-sigCh:
					for _, leg := range s.Actions {
						b.log.Info("signal leg",
							zap.String("strategy", s.StrategyID),
							zap.Int("leg_index", leg.LegIndex),
							zap.String("symbol", leg.Symbol),
							zap.String("side", string(leg.Side)),
							zap.Float64("price", leg.Price),
							zap.Float64("quantity", leg.Quantity),
							zap.String("path", leg.Path),
						)
					}
				}
			}
		}()
	} else {
		ex, err := exchange.NewBinanceClient(b.cfg, b.log)
		if err != nil {
			return err
		}
		gate := risk.NewGate(b.cfg, b.log)
		router := execution.NewRouter(ex, gate, b.log)
		exec := execution.NewExecutor(gate, router, book, b.log)
		go exec.Run(ctx, sigCh)
		go func() {
			t := time.NewTicker(b.cfg.OrderPoll())
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					router.SyncActive(ctx)
				}
			}
		}()
	}

	wsURL := b.cfg.Exchange.WsURL
	if wsURL == "" {
		wsURL = "wss://stream.binance.com:9443"
	}
	feed := binance.NewWS(wsURL, b.cfg.ReconnectDelay(), b.log)
	stream, err := feed.Subscribe(ctx, b.cfg.Symbols)
	if err != nil {
		return err
	}
	b.log.Info("subscribed to book ticker stream", zap.Strings("symbols", b.cfg.Symbols))

	bootstrap := time.AfterFunc(b.cfg.BootstrapWait(), func() {
		if missing := book.Missing(b.cfg.Symbols); len(missing) > 0 {
			b.log.Warn("book still incomplete after bootstrap window",
				zap.Strings("symbols_missing", missing),
			)
		} else {
			b.log.Info("book ready for all symbols")
		}
	})
	defer bootstrap.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot finished")
			return nil
		case u, ok := <-stream:
			if !ok {
				b.log.Warn("market stream closed")
				return nil
			}
			if mirror != nil {
				mirror.PublishQuote(ctx, u)
			}
			strat.OnTick(u)
		}
	}
}

// NewLogger builds the production logger. With log.file configured the
// output is additionally written to a size-rotated file.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zcfg.Encoding = "json"
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.StacktraceKey = "stacktrace"
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	if cfg == nil || cfg.Log.File == "" {
		return zcfg.Build()
	}

	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	encoder := zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zcfg.Level),
		zapcore.NewCore(encoder, rotated, zcfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}
