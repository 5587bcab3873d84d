package redisfeed

import (
	"context"
	"encoding/json"

	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Mirror publishes the latest prices and emitted signals to Redis so that
// dashboards and offline tooling can observe the live stream. The engine
// never reads it back; publish failures are logged and dropped.
type Mirror struct {
	rdb    *redis.Client
	stream string
	snapNS string
	log    *zap.Logger
}

func NewMirror(cfg *config.Config, log *zap.Logger) *Mirror {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Mirror{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		snapNS: cfg.Redis.SnapNS,
		log:    log,
	}
}

// PublishQuote upserts the latest quote snapshot for u.Symbol.
func (m *Mirror) PublishQuote(ctx context.Context, u types.PriceUpdate) {
	err := m.rdb.HSet(ctx, m.snapNS+u.Symbol, map[string]interface{}{
		"symbol": u.Symbol,
		"bid":    u.Bid,
		"ask":    u.Ask,
		"last":   u.LastTrade,
		"ts_ms":  u.Ts.UnixMilli(),
	}).Err()
	if err != nil {
		m.log.Warn("redis quote publish failed", zap.String("symbol", u.Symbol), zap.Error(err))
	}
}

// PublishSignal appends sig to the signal stream.
func (m *Mirror) PublishSignal(ctx context.Context, sig types.Signal) {
	payload, err := json.Marshal(sig)
	if err != nil {
		m.log.Warn("signal marshal failed", zap.Error(err))
		return
	}
	err = m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		Values: map[string]interface{}{
			"strategy_id": sig.StrategyID,
			"ts":          sig.Timestamp.UnixMilli(),
			"signal":      payload,
		},
	}).Err()
	if err != nil {
		m.log.Warn("redis signal publish failed", zap.Error(err))
	}
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}
