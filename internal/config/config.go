package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Symbols []string `yaml:"symbols"`
	DryRun  bool     `yaml:"dry_run"`

	Strategy struct {
		ID                  string  `yaml:"id"`
		MinProfitThreshold  float64 `yaml:"min_profit_threshold"`
		FeePct              float64 `yaml:"fee_pct"`
		TradeAmount         float64 `yaml:"trade_amount"`
		MaxTradeAmount      float64 `yaml:"max_trade_amount"`
		PredictionThreshold float64 `yaml:"prediction_threshold"`
		StartCurrency       string  `yaml:"start_currency"`
	} `yaml:"strategy"`

	Risk struct {
		MaxOrderValueUSD float64 `yaml:"max_order_value_usd"`
		MaxPositionSize  float64 `yaml:"max_position_size"`
		MaxOrderQuantity float64 `yaml:"max_order_quantity"`
	} `yaml:"risk"`

	Exchange struct {
		ApiKey    string `yaml:"api_key"`
		ApiSecret string `yaml:"api_secret"`
		RestURL   string `yaml:"rest_url"`
		WsURL     string `yaml:"ws_url"`
	} `yaml:"exchange"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Stream   string `yaml:"stream"`
		SnapNS   string `yaml:"snap_ns"`
	} `yaml:"redis"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Log struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`

	Timings struct {
		SignalBuffer     int `yaml:"signal_buffer"`
		BootstrapWaitMs  int `yaml:"bootstrap_wait_ms"`
		OrderPollMs      int `yaml:"order_poll_ms"`
		ReconnectDelayMs int `yaml:"reconnect_delay_ms"`
	} `yaml:"timings"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.ID == "" {
		c.Strategy.ID = "simple_arbitrage"
	}
	if c.Strategy.MinProfitThreshold == 0 {
		c.Strategy.MinProfitThreshold = 0.001
	}
	if c.Strategy.MaxTradeAmount == 0 {
		c.Strategy.MaxTradeAmount = 100
	}
	if c.Strategy.TradeAmount == 0 {
		c.Strategy.TradeAmount = c.Strategy.MaxTradeAmount
	}
	if c.Strategy.StartCurrency == "" {
		c.Strategy.StartCurrency = "USDT"
	}
	if c.Risk.MaxOrderValueUSD == 0 {
		c.Risk.MaxOrderValueUSD = 100
	}
	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = 100
	}
	if c.Timings.SignalBuffer == 0 {
		c.Timings.SignalBuffer = 64
	}
	if c.Timings.BootstrapWaitMs == 0 {
		c.Timings.BootstrapWaitMs = 5000
	}
	if c.Timings.OrderPollMs == 0 {
		c.Timings.OrderPollMs = 500
	}
	if c.Timings.ReconnectDelayMs == 0 {
		c.Timings.ReconnectDelayMs = 1000
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "signal:stream"
	}
	if c.Redis.SnapNS == "" {
		c.Redis.SnapNS = "price:snap:"
	}
}

func (c *Config) BootstrapWait() time.Duration {
	return time.Duration(c.Timings.BootstrapWaitMs) * time.Millisecond
}

func (c *Config) OrderPoll() time.Duration {
	return time.Duration(c.Timings.OrderPollMs) * time.Millisecond
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Timings.ReconnectDelayMs) * time.Millisecond
}
