package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"supertrader/internal/config"
	"supertrader/internal/gateway/binance"
	"supertrader/internal/gateway/creon"
	"supertrader/internal/gateway/notifier"
	"supertrader/internal/logger"
	"supertrader/internal/store/gormstore"
	"supertrader/internal/trader"
)

const (
	brokerBinance = "binance"
	brokerCreon   = "creon"

	creonLocation = "Asia/Seoul"
)

// session is one configured, health-checked trader plus the resources the
// command must release when it is done.
type session struct {
	cfg     *config.Config
	notify  *notifier.Notifier
	trader  *trader.Trader
	journal *gormstore.Journal
	logFile *os.File
}

// loadConfig reads the config and switches logging to its level and daily
// file. It runs before any broker is built.
func loadConfig(path string) (*config.Config, *os.File, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(cfg.App.LogLevel)
	logFile, err := logger.OpenDaily(cfg.App.LogDir, time.Now())
	if err != nil {
		return nil, nil, fmt.Errorf("open daily log: %w", err)
	}
	return cfg, logFile, nil
}

func newNotifier(cfg *config.Config) *notifier.Notifier {
	slack := notifier.NewSlack(cfg.Slack.Token, cfg.Slack.Channel)
	slack.APIURL = cfg.Slack.APIURL
	var sink notifier.TextNotifier = slack
	if cfg.Telegram.Enabled() {
		sink = notifier.Multi{slack, notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)}
	}
	return notifier.New(sink, notifier.WithSuspension(cfg.Slack.Suspension()))
}

// openSession runs the full startup sequence for the selected broker. A
// closed market comes back as trader.ErrMarketClosed after the operator has
// been told the program is exiting.
func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	cfg, logFile, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logFile: logFile}
	s.notify = newNotifier(cfg)

	broker, gate, err := buildBroker(cfg, opts.broker)
	if err != nil {
		s.Close()
		return nil, err
	}
	if path := strings.TrimSpace(cfg.Store.Path); path != "" {
		s.journal, err = gormstore.Open(path)
		if err != nil {
			_ = broker.Close()
			s.Close()
			return nil, fmt.Errorf("open order journal: %w", err)
		}
	}

	topts := trader.OptionsFromConfig(cfg.Trader)
	if s.journal != nil {
		topts.Journal = s.journal
	}
	t, err := trader.New(ctx, broker, gate, s.notify, topts)
	if err != nil {
		_ = broker.Close()
		if errors.Is(err, trader.ErrMarketClosed) {
			s.notify.Info("Exit the program.", true)
		}
		s.Close()
		return nil, err
	}
	s.trader = t
	journal := "disabled"
	if s.journal != nil {
		journal = cfg.Store.Path
	}
	logger.InfoBlock(fmt.Sprintf("broker: %s\nconfirm: %s\njournal: %s",
		broker.Name(), t.ConfirmPolicy(), journal))
	return s, nil
}

func buildBroker(cfg *config.Config, name string) (trader.Broker, trader.MarketGate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case brokerBinance:
		b, err := binance.FromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, trader.AlwaysOpen{}, nil
	case brokerCreon:
		loc, err := time.LoadLocation(creonLocation)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", creonLocation, err)
		}
		if err := cfg.RequireHolidays(time.Now().In(loc).Year()); err != nil {
			return nil, nil, err
		}
		disp, err := creon.NewOLE()
		if err != nil {
			return nil, nil, err
		}
		b, err := creon.New(disp, creon.ConfigFrom(cfg.Creon))
		if err != nil {
			return nil, nil, err
		}
		return b, trader.NewCalendarGate(cfg.Holidays(), loc), nil
	default:
		return nil, nil, fmt.Errorf("unknown broker %q (supported: %s, %s)", name, brokerBinance, brokerCreon)
	}
}

// Close releases the broker session, the journal and the log file.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.trader != nil {
		if err := s.trader.Close(); err != nil {
			logger.Warnf("closing broker session: %v", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logger.Warnf("closing order journal: %v", err)
		}
	}
	closeLog(s.logFile)
}

// closeLog points the logger back at stdout before closing the daily file.
func closeLog(f *os.File) {
	if f == nil {
		return
	}
	logger.SetOutput(os.Stdout)
	_ = f.Close()
}
