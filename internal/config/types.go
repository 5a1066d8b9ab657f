package config

import (
	"strconv"
	"strings"
	"time"
)

// Config is the immutable startup configuration of a trader process.
type Config struct {
	App      AppConfig        `json:"app"`
	Slack    SlackConfig      `json:"slack"`
	Telegram TelegramConfig   `json:"telegram"`
	Holiday  map[string][]int `json:"holiday"`
	Binance  BinanceConfig    `json:"binance"`
	Creon    CreonConfig      `json:"creon"`
	Trader   TraderConfig     `json:"trader"`
	Store    StoreConfig      `json:"store"`
	HTTP     HTTPConfig       `json:"http"`

	keys keySet
}

type AppConfig struct {
	LogLevel string `json:"log_level"`
	LogDir   string `json:"log_dir"`
}

type SlackConfig struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
	APIURL  string `json:"api_url"`

	// SuspendMinutes pauses external delivery after repeated send failures.
	// An explicit 0 keeps every message flowing.
	SuspendMinutes int `json:"suspend_minutes"`
}

func (s SlackConfig) Suspension() time.Duration {
	return time.Duration(s.SuspendMinutes) * time.Minute
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// Enabled reports whether both Telegram credentials are present.
func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChatID) != ""
}

// BinanceConfig holds the exchange credentials. Market has no default: the
// caller must pick "spot" or "future" explicitly.
type BinanceConfig struct {
	APIKey              string  `json:"api_key"`
	Secret              string  `json:"secret"`
	Market              string  `json:"market"`
	RESTBaseURL         string  `json:"rest_base_url"`
	TimeoutSeconds      int     `json:"timeout_seconds"`
	ProxyURL            string  `json:"proxy_url"`
	RequestsPerSecond   float64 `json:"requests_per_second"`
	RateLimitCooldownMS int     `json:"rate_limit_cooldown_ms"`
}

func (b BinanceConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func (b BinanceConfig) RateLimitCooldown() time.Duration {
	return time.Duration(b.RateLimitCooldownMS) * time.Millisecond
}

type CreonConfig struct {
	AccountIndex int `json:"account_index"`
	GoodsFilter  int `json:"goods_filter"`
}

// TraderConfig tunes the order confirmation and liquidation loops.
type TraderConfig struct {
	Confirm                   string `json:"confirm"`
	PollIntervalMS            int    `json:"poll_interval_ms"`
	LiquidationPollIntervalMS int    `json:"liquidation_poll_interval_ms"`
	MaxRateLimitRetries       int    `json:"max_rate_limit_retries"`
	MaxPollErrors             int    `json:"max_poll_errors"`
	HealthSymbol              string `json:"health_symbol"`
}

func (t TraderConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMS) * time.Millisecond
}

func (t TraderConfig) LiquidationPollInterval() time.Duration {
	return time.Duration(t.LiquidationPollIntervalMS) * time.Millisecond
}

type StoreConfig struct {
	Path string `json:"path"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

// Holidays returns the configured closed dates keyed by calendar year.
// Entries whose key is not a year are skipped; the schema rejects them anyway.
func (c *Config) Holidays() map[int][]int {
	out := make(map[int][]int, len(c.Holiday))
	for k, dates := range c.Holiday {
		year, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		out[year] = append([]int(nil), dates...)
	}
	return out
}

// keySet tracks the key paths explicitly present in the config file.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

func (k keySet) hasSection(section string) bool {
	prefix := strings.ToLower(strings.TrimSpace(section)) + "."
	for path := range k {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// fieldDefault describes how a field gets its default when absent.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
