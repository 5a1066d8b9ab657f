package config

import (
	"fmt"
	"strings"
)

const (
	ConfirmFilled       = "filled"
	ConfirmNoOpenOrders = "no_open_orders"

	MarketSpot   = "spot"
	MarketFuture = "future"
)

// validate runs the checks every trader needs regardless of broker.
func validate(c *Config) error {
	if err := c.Slack.validate(); err != nil {
		return err
	}
	if err := c.Trader.validate(); err != nil {
		return err
	}
	for year, dates := range c.Holiday {
		for _, d := range dates {
			if d < 10000101 || d > 99991231 {
				return newError("holiday."+year, fmt.Sprintf("%d is not an 8-digit YYYYMMDD date", d), nil)
			}
		}
	}
	return nil
}

func (s *SlackConfig) validate() error {
	if strings.TrimSpace(s.Token) == "" {
		return newError("slack.token", "config must contain a slack token", nil)
	}
	if strings.TrimSpace(s.Channel) == "" {
		return newError("slack.channel", "config must contain a slack channel", nil)
	}
	return nil
}

func (t *TraderConfig) validate() error {
	switch t.Confirm {
	case "", ConfirmFilled, ConfirmNoOpenOrders:
	default:
		return newError("trader.confirm", fmt.Sprintf("unknown confirmation policy %q", t.Confirm), nil)
	}
	if t.MaxRateLimitRetries < 0 {
		return newError("trader.max_rate_limit_retries", "must be >= 0", nil)
	}
	return nil
}

// RequireBinance checks the exchange section. It runs when the exchange
// trader is constructed, before any network call.
func (c *Config) RequireBinance() error {
	if !c.keys.hasSection("binance") {
		return newError("binance", "config must contain 'binance' key", nil)
	}
	b := c.Binance
	if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.Secret) == "" {
		return newError("binance", "binance in config must contain 'api_key', and 'secret' key", nil)
	}
	switch b.Market {
	case MarketSpot, MarketFuture:
	case "":
		return newError("binance.market", "must be set explicitly to \"spot\" or \"future\"", nil)
	default:
		return newError("binance.market", fmt.Sprintf("unknown market %q", b.Market), nil)
	}
	return nil
}

// RequireHolidays checks that the calendar-gated trader has a holiday table
// for the given year.
func (c *Config) RequireHolidays(year int) error {
	if _, ok := c.Holidays()[year]; !ok {
		return newError(fmt.Sprintf("holiday.%d", year), "no holiday list configured for this year", nil)
	}
	return nil
}
