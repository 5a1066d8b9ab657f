package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"supertrader/internal/trader"

	"github.com/spf13/cobra"
)

// withSession opens a checked trader session around fn and always releases it.
func withSession(opts *rootOptions, fn func(ctx context.Context, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, s)
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the startup checks and exit",
		Long: `Check runs messaging, the market-open gate and the broker health check,
exactly as every trading command does, without placing any order.`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(_ context.Context, s *session) error {
			out := struct {
				Broker  string               `json:"broker" yaml:"broker"`
				Confirm trader.ConfirmPolicy `json:"confirm" yaml:"confirm"`
			}{s.trader.Broker().Name(), s.trader.ConfirmPolicy()}
			return printResult(opts.out, opts.format, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s ready (confirm: %s)\n", out.Broker, out.Confirm)
			})
		}),
	}
}

func newPriceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price SYMBOL",
		Short: "Print the current price of a symbol",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withSession(opts, func(ctx context.Context, s *session) error {
			price, err := s.trader.CurrentPrice(ctx, args[0])
			if err != nil {
				return err
			}
			out := map[string]any{"symbol": args[0], "price": price}
			return printResult(opts.out, opts.format, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", args[0], num(price))
			})
		})(c, args)
	}
	return cmd
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the quote-currency balance",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session) error {
			bal, err := s.trader.QuoteBalance(ctx)
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, bal, func(w io.Writer) {
				fmt.Fprintf(w, "%s total=%s available=%s\n", bal.Asset, num(bal.Total), num(bal.Available))
			})
		}),
	}
}

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol  string
		display bool
	)
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List open holdings",
		Long: `Positions lists nonzero holdings. With --display the extended account
snapshot is fetched instead and also sent to the log as a readable summary.`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session) error {
			if display {
				snap, err := s.trader.Snapshot(ctx, true)
				if err != nil {
					return err
				}
				return printResult(opts.out, opts.format, snap, snapshotText(snap))
			}
			positions, err := s.trader.Holdings(ctx, symbol)
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, positions, positionsText(positions))
		}),
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", trader.AllSymbols, "symbol to show, or \"all\"")
	cmd.Flags().BoolVar(&display, "display", false, "fetch and log the extended account snapshot")
	return cmd
}

func newCandlesCmd(opts *rootOptions) *cobra.Command {
	var (
		interval string
		since    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "candles SYMBOL",
		Short: "Print OHLCV candles",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withSession(opts, func(ctx context.Context, s *session) error {
			end := time.Now()
			candles, err := s.trader.Candles(ctx, args[0], interval, end.Add(-since), end)
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, candles, candlesText(candles))
		})(c, args)
	}
	cmd.Flags().StringVarP(&interval, "interval", "i", "1h", "candle interval (1m, 5m, 1h, 1d, ...)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to fetch")
	return cmd
}

func newOrderCmd(opts *rootOptions) *cobra.Command {
	var (
		qty   float64
		price string
	)
	cmd := &cobra.Command{
		Use:   "order SYMBOL",
		Short: "Execute an order and wait for confirmation",
		Long: `Order buys when --qty is positive and sells when it is negative, trading
abs(qty). It returns once the configured confirmation policy is satisfied.

Example:
  supertrader order BTC/USDT --qty=-0.5
  supertrader --broker creon order A005930 --qty 10 --price 71000`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		p, err := trader.ParsePrice(price)
		if err != nil {
			return err
		}
		return withSession(opts, func(ctx context.Context, s *session) error {
			report, err := s.trader.Execute(ctx, args[0], qty, p)
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, report, nil)
		})(c, args)
	}
	cmd.Flags().Float64VarP(&qty, "qty", "q", 0, "signed quantity: positive buys, negative sells (required)")
	cmd.Flags().StringVarP(&price, "price", "p", "market", "limit price, or \"market\"")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newCloseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close SYMBOL",
		Short: "Flatten one position at market",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withSession(opts, func(ctx context.Context, s *session) error {
			report, err := s.trader.ClosePosition(ctx, args[0])
			if err != nil {
				return err
			}
			if report == nil {
				return printResult(opts.out, opts.format, map[string]any{"symbol": args[0], "closed": false}, func(w io.Writer) {
					fmt.Fprintf(w, "%s: nothing to close\n", args[0])
				})
			}
			return printResult(opts.out, opts.format, report, nil)
		})(c, args)
	}
	return cmd
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "cancel SYMBOL [ORDER_ID]",
		Short: "Cancel one open order, or every open order with --all",
		Args:  cobra.RangeArgs(1, 2),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		if all == (len(args) == 2) {
			return fmt.Errorf("give either an ORDER_ID or --all")
		}
		return withSession(opts, func(ctx context.Context, s *session) error {
			if all {
				return s.trader.CancelAll(ctx, args[0])
			}
			return s.trader.CancelOrder(ctx, args[0], args[1])
		})(c, args)
	}
	cmd.Flags().BoolVar(&all, "all", false, "cancel every open order for SYMBOL")
	return cmd
}

func newLeverageCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leverage SYMBOL [N]",
		Short: "Show or set the leverage of a futures symbol",
		Args:  cobra.RangeArgs(1, 2),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		var target int
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("leverage must be an integer: %w", err)
			}
			target = n
		}
		return withSession(opts, func(ctx context.Context, s *session) error {
			if len(args) == 2 {
				if err := s.trader.SetLeverage(ctx, args[0], target); err != nil {
					return err
				}
			}
			lev, err := s.trader.Leverage(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, map[string]any{"symbol": args[0], "leverage": lev}, func(w io.Writer) {
				fmt.Fprintf(w, "%s %dx\n", args[0], lev)
			})
		})(c, args)
	}
	return cmd
}

func newMarginModeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "margin-mode SYMBOL isolated|cross",
		Short: "Set the margin mode of a futures symbol",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		mode, err := trader.ParseMarginMode(args[1])
		if err != nil {
			return err
		}
		return withSession(opts, func(ctx context.Context, s *session) error {
			changed, err := s.trader.SetMarginMode(ctx, args[0], mode)
			if err != nil {
				return err
			}
			out := map[string]any{"symbol": args[0], "margin_mode": mode, "changed": changed}
			return printResult(opts.out, opts.format, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s margin mode %s (changed: %t)\n", args[0], mode, changed)
			})
		})(c, args)
	}
	return cmd
}

func newLiquidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "liquidate",
		Short: "Close every nonzero holding at market and wait until flat",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session) error {
			return s.trader.CloseAll(ctx)
		}),
	}
}
