package config

import "strings"

const (
	defaultAppLogLevel          = "info"
	defaultAppLogDir            = "logs"
	defaultSlackAPIURL          = "https://slack.com/api/chat.postMessage"
	defaultSlackSuspendMinutes  = 5
	defaultBinanceTimeout       = 15
	defaultBinanceRPS           = 10
	defaultBinanceCooldownMS    = 1000
	defaultCreonGoodsFilter     = 1
	defaultTraderPollMS         = 100
	defaultTraderLiquidationMS  = 1000
	defaultTraderRateLimitRetry = 5
	defaultTraderPollErrors     = 3
	defaultTraderHealthSymbol   = "BTC/USDT"
	defaultHTTPAddr             = ":9991"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Slack.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.Creon.applyDefaults(keys)
	c.Trader.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
	if c.Holiday == nil {
		c.Holiday = map[string][]int{}
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_dir", &a.LogDir, defaultAppLogDir),
	)
}

func (s *SlackConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("slack.api_url", &s.APIURL, defaultSlackAPIURL),
		intFieldDefault("slack.suspend_minutes", &s.SuspendMinutes, defaultSlackSuspendMinutes),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("binance.timeout_seconds", &b.TimeoutSeconds, defaultBinanceTimeout),
		intFieldDefault("binance.rate_limit_cooldown_ms", &b.RateLimitCooldownMS, defaultBinanceCooldownMS),
		fieldDefault{
			key:   "binance.requests_per_second",
			need:  func() bool { return b.RequestsPerSecond <= 0 },
			apply: func() { b.RequestsPerSecond = defaultBinanceRPS },
		},
	)
	b.Market = strings.ToLower(strings.TrimSpace(b.Market))
}

func (c *CreonConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("creon.goods_filter", &c.GoodsFilter, defaultCreonGoodsFilter),
	)
}

func (t *TraderConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("trader.poll_interval_ms", &t.PollIntervalMS, defaultTraderPollMS),
		intFieldDefault("trader.liquidation_poll_interval_ms", &t.LiquidationPollIntervalMS, defaultTraderLiquidationMS),
		intFieldDefault("trader.max_rate_limit_retries", &t.MaxRateLimitRetries, defaultTraderRateLimitRetry),
		intFieldDefault("trader.max_poll_errors", &t.MaxPollErrors, defaultTraderPollErrors),
		stringFieldDefault("trader.health_symbol", &t.HealthSymbol, defaultTraderHealthSymbol),
	)
	t.Confirm = strings.ToLower(strings.TrimSpace(t.Confirm))
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
