package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"supertrader/internal/config"
	"supertrader/internal/trader"
)

const brokerName = "binance"

// Binance error codes the binding reacts to.
const (
	codeTooManyRequests  = -1003
	codeTooManyOrders    = -1015
	codeNoNeedChangeMode = -4046
)

// Broker binds trader.Broker to either the spot or the USDⓈ-M futures API.
// Exactly one of spot and fut is set.
type Broker struct {
	trader.UnsupportedBroker

	cfg     Config
	spot    *gobinance.Client
	fut     *futures.Client
	limiter *rate.Limiter
}

// FromConfig checks the binance section before building the client, so a bad
// config fails before any network call.
func FromConfig(cfg *config.Config) (*Broker, error) {
	if err := cfg.RequireBinance(); err != nil {
		return nil, err
	}
	return New(ConfigFrom(cfg))
}

func New(cfg Config) (*Broker, error) {
	final := cfg.withDefaults()
	httpClient, err := newHTTPClient(final)
	if err != nil {
		return nil, err
	}
	b := &Broker{
		UnsupportedBroker: trader.UnsupportedBroker{BrokerName: brokerName},
		cfg:               final,
		limiter:           rate.NewLimiter(rate.Limit(final.RequestsPerSecond), 1),
	}
	switch final.Market {
	case MarketSpot:
		client := gobinance.NewClient(final.APIKey, final.Secret)
		if final.RESTBaseURL != "" {
			client.BaseURL = final.RESTBaseURL
		}
		client.HTTPClient = httpClient
		b.spot = client
	case MarketFuture:
		client := futures.NewClient(final.APIKey, final.Secret)
		if final.RESTBaseURL != "" {
			client.BaseURL = final.RESTBaseURL
		}
		client.HTTPClient = httpClient
		b.fut = client
	default:
		return nil, fmt.Errorf("binance: market must be %q or %q, got %q", MarketSpot, MarketFuture, final.Market)
	}
	return b, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.ProxyURL == "" {
		return httpClient, nil
	}
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REST proxy url: %w", err)
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok || baseTransport == nil {
		return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
	}
	transport := baseTransport.Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	httpClient.Transport = transport
	return httpClient, nil
}

func (b *Broker) Name() string { return brokerName }

func (b *Broker) IsFuture() bool { return b.fut != nil }

func (b *Broker) Capabilities() trader.Capabilities {
	return trader.Capabilities{
		Leverage:        b.IsFuture(),
		MarginMode:      b.IsFuture(),
		UnrealizedPnL:   b.IsFuture(),
		Candles:         true,
		ConfirmPolicies: []trader.ConfirmPolicy{trader.ConfirmFilled, trader.ConfirmNoOpenOrders},
		DefaultConfirm:  trader.ConfirmFilled,
	}
}

// Verify fetches one reference ticker as a smoke test.
func (b *Broker) Verify(ctx context.Context) error {
	if _, err := b.Price(ctx, b.cfg.HealthSymbol); err != nil {
		return fmt.Errorf("binance(%s) ticker %s: %w", b.cfg.Market, b.cfg.HealthSymbol, err)
	}
	return nil
}

func (b *Broker) Close() error {
	if b.spot != nil {
		b.spot.HTTPClient.CloseIdleConnections()
	}
	if b.fut != nil {
		b.fut.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// wait applies the local request limit shared by every call of this binding.
func (b *Broker) wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// classify turns exchange rate-limit codes into *trader.RateLimitedError and
// leaves every other error untouched.
func (b *Broker) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeTooManyRequests, codeTooManyOrders:
			return &trader.RateLimitedError{Cooldown: b.cfg.RateLimitCooldown, Reason: apiErr.Message}
		}
	}
	return fmt.Errorf("binance %s: %w", op, err)
}

func apiCode(err error) int64 {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
