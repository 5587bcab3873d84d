package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WS streams book-ticker updates for a set of symbols over a combined
// websocket stream and re-emits them as PriceUpdate events.
type WS struct {
	baseURL string
	delay   time.Duration
	dialer  *websocket.Dialer
	log     *zap.Logger
}

func NewWS(baseURL string, reconnectDelay time.Duration, log *zap.Logger) *WS {
	return &WS{
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   reconnectDelay,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		log: log,
	}
}

type combinedFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	} `json:"data"`
}

// Subscribe starts the stream for symbols given in BASE/QUOTE form and
// returns the event channel. The channel closes when ctx is done. Read
// failures trigger a redial after the configured delay.
func (w *WS) Subscribe(ctx context.Context, symbols []string) (<-chan types.PriceUpdate, error) {
	streams := make([]string, 0, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for _, s := range symbols {
		wire := strings.ToUpper(strings.ReplaceAll(s, "/", ""))
		bySymbol[wire] = s
		streams = append(streams, strings.ToLower(wire)+"@bookTicker")
	}
	url := w.baseURL + "/stream?streams=" + strings.Join(streams, "/")

	out := make(chan types.PriceUpdate, 1024)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			conn, _, err := w.dialer.DialContext(ctx, url, nil)
			if err != nil {
				w.log.Warn("feed dial failed, retrying", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(w.delay):
				}
				continue
			}
			w.log.Info("feed connected", zap.Int("symbols", len(symbols)))
			w.readLoop(ctx, conn, bySymbol, out)
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.delay):
			}
		}
	}()

	return out, nil
}

func (w *WS) readLoop(ctx context.Context, conn *websocket.Conn, bySymbol map[string]string, out chan<- types.PriceUpdate) {
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.log.Warn("feed read failed", zap.Error(err))
			return
		}
		var frame combinedFrame
		if err := json.Unmarshal(msg, &frame); err != nil || frame.Data.Symbol == "" {
			continue
		}
		symbol, ok := bySymbol[frame.Data.Symbol]
		if !ok {
			continue
		}
		bid, _ := strconv.ParseFloat(frame.Data.Bid, 64)
		ask, _ := strconv.ParseFloat(frame.Data.Ask, 64)
		u := types.PriceUpdate{
			Symbol: symbol,
			Bid:    bid,
			Ask:    ask,
			Ts:     time.Now(),
		}
		select {
		case out <- u:
		default:
			w.log.Warn("feed channel full, dropping update", zap.String("symbol", symbol))
		}
	}
}
