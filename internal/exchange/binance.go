package exchange

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
	"strconv"
	"strings"
	"time"

	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceClient talks to a Binance-compatible spot REST API.
type BinanceClient struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client
}

func NewBinanceClient(cfg *config.Config, log *zap.Logger) (*BinanceClient, error) {
	if cfg.Exchange.RestURL == "" {
		return nil, fmt.Errorf("exchange.rest_url is empty")
	}
	return &BinanceClient{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: 6 * time.Second},
	}, nil
}

type binanceOrder struct {
	OrderID       json.Number `json:"orderId"`
	ClientOrderID string      `json:"clientOrderId"`
	Symbol        string      `json:"symbol"`
	Side          string      `json:"side"`
	Type          string      `json:"type"`
	OrigQty       string      `json:"origQty"`
	ExecutedQty   string      `json:"executedQty"`
	Price         string      `json:"price"`
	Status        string      `json:"status"`
}

func (c *BinanceClient) CreateOrder(ctx context.Context, req OrderRequest) (types.Order, error) {
	params := url.Values{}
	params.Set("symbol", wireSymbol(req.Symbol))
	params.Set("side", strings.ToUpper(string(req.Side)))
	params.Set("type", strings.ToUpper(string(req.Type)))
	params.Set("quantity", decimal.NewFromFloat(req.Quantity).String())
	if req.Type == types.OrderTypeLimit {
		params.Set("price", decimal.NewFromFloat(req.Price).String())
		params.Set("timeInForce", "IOC")
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	params.Set("newClientOrderId", clientID)

	var bo binanceOrder
	if err := c.signedCall(ctx, http.MethodPost, "/api/v3/order", params, &bo); err != nil {
		return types.Order{}, err
	}
	order := fromBinance(bo, req.Symbol)
	c.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.QuantityRequested),
	)
	return order, nil
}

func (c *BinanceClient) CancelOrder(ctx context.Context, orderID, symbol string) error {
	params := url.Values{}
	params.Set("symbol", wireSymbol(symbol))
	params.Set("orderId", orderID)
	return c.signedCall(ctx, http.MethodDelete, "/api/v3/order", params, nil)
}

func (c *BinanceClient) GetOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	params := url.Values{}
	params.Set("symbol", wireSymbol(symbol))
	params.Set("orderId", orderID)
	var bo binanceOrder
	if err := c.signedCall(ctx, http.MethodGet, "/api/v3/order", params, &bo); err != nil {
		return types.Order{}, err
	}
	return fromBinance(bo, symbol), nil
}

func (c *BinanceClient) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", wireSymbol(symbol))
	}
	var raw []binanceOrder
	if err := c.signedCall(ctx, http.MethodGet, "/api/v3/openOrders", params, &raw); err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(raw))
	for _, bo := range raw {
		out = append(out, fromBinance(bo, symbol))
	}
	return out, nil
}

func (c *BinanceClient) signedCall(ctx context.Context, method, path string, params url.Values, v any) error {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	params.Set("signature", c.sign(params.Encode()))

	endpoint := c.cfg.Exchange.RestURL + path
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.Exchange.ApiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, string(body))
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(body, v)
}

func (c *BinanceClient) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Exchange.ApiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// wireSymbol converts "BTC/USDT" to the exchange's "BTCUSDT" form.
func wireSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

func fromBinance(bo binanceOrder, symbol string) types.Order {
	reqQty, _ := decimal.NewFromString(bo.OrigQty)
	execQty, _ := decimal.NewFromString(bo.ExecutedQty)
	price, _ := decimal.NewFromString(bo.Price)
	return types.Order{
		ID:                bo.OrderID.String(),
		Symbol:            symbol,
		Side:              types.Side(strings.ToLower(bo.Side)),
		Type:              types.OrderType(strings.ToLower(bo.Type)),
		QuantityRequested: reqQty.InexactFloat64(),
		QuantityExecuted:  execQty.InexactFloat64(),
		Price:             price.InexactFloat64(),
		Status:            mapStatus(bo.Status),
	}
}

func mapStatus(s string) types.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW", "PENDING_NEW":
		return types.OrderStatusNew
	case "PARTIALLY_FILLED":
		return types.OrderStatusPartiallyFilled
	case "FILLED":
		return types.OrderStatusFilled
	case "CANCELED", "PENDING_CANCEL":
		return types.OrderStatusCanceled
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return types.OrderStatusExpired
	case "REJECTED":
		return types.OrderStatusRejected
	default:
		return types.OrderStatus(strings.ToLower(s))
	}
}
