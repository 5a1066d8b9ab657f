package binance

import (
	"strings"
	"time"

	"supertrader/internal/config"
)

const (
	MarketSpot   = config.MarketSpot
	MarketFuture = config.MarketFuture

	defaultQuoteAsset = "USDT"
)

// Config selects the market and carries credentials. Market has no default.
type Config struct {
	APIKey            string
	Secret            string
	Market            string
	RESTBaseURL       string
	HTTPTimeout       time.Duration
	ProxyURL          string
	RequestsPerSecond float64
	RateLimitCooldown time.Duration
	HealthSymbol      string
	QuoteAsset        string
}

// ConfigFrom maps the validated config file sections.
func ConfigFrom(cfg *config.Config) Config {
	b := cfg.Binance
	return Config{
		APIKey:            b.APIKey,
		Secret:            b.Secret,
		Market:            b.Market,
		RESTBaseURL:       b.RESTBaseURL,
		HTTPTimeout:       b.Timeout(),
		ProxyURL:          b.ProxyURL,
		RequestsPerSecond: b.RequestsPerSecond,
		RateLimitCooldown: b.RateLimitCooldown(),
		HealthSymbol:      cfg.Trader.HealthSymbol,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	out.Market = strings.ToLower(strings.TrimSpace(out.Market))
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 10
	}
	if out.RateLimitCooldown <= 0 {
		out.RateLimitCooldown = time.Second
	}
	if strings.TrimSpace(out.HealthSymbol) == "" {
		out.HealthSymbol = "BTC/USDT"
	}
	out.QuoteAsset = strings.ToUpper(strings.TrimSpace(out.QuoteAsset))
	if out.QuoteAsset == "" {
		out.QuoteAsset = defaultQuoteAsset
	}
	return out
}
