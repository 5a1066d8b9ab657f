package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"supertrader/internal/logger"
	"supertrader/internal/trader"

	"github.com/spf13/cobra"
)

const (
	configEnv         = "SUPERTRADER_CONFIG"
	defaultConfigPath = "config.json"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	broker     string
	format     string
	out        io.Writer
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "supertrader",
		Short: "Trade on Binance or through the Creon terminal from one command line",
		Long: `supertrader drives a single broker session: it checks messaging, the
market calendar and broker health, then runs one operation and exits.

Brokers:
  - binance: spot or USD-M futures over REST (binance.market selects which)
  - creon:   KOSPI/KOSDAQ stocks through the Creon Plus terminal (Windows only)

Example:
  supertrader --broker binance order BTC/USDT --qty=-0.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfgDefault := strings.TrimSpace(os.Getenv(configEnv))
	if cfgDefault == "" {
		cfgDefault = defaultConfigPath
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", cfgDefault, "path to the JSON config ($"+configEnv+")")
	root.PersistentFlags().StringVarP(&opts.broker, "broker", "b", brokerBinance, "broker binding (binance, creon)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "output format (text, json, yaml)")

	root.AddCommand(
		newCheckCmd(opts),
		newPriceCmd(opts),
		newBalanceCmd(opts),
		newPositionsCmd(opts),
		newCandlesCmd(opts),
		newOrderCmd(opts),
		newCloseCmd(opts),
		newCancelCmd(opts),
		newLeverageCmd(opts),
		newMarginModeCmd(opts),
		newLiquidateCmd(opts),
		newOrdersCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// run executes the CLI and maps the outcome to a process exit code: a closed
// market is a normal exit, anything else failing is 1.
func run(ctx context.Context, args []string) int {
	opts := &rootOptions{out: os.Stdout}
	root := newRootCmd(opts)
	root.SetArgs(args)
	return exitCode(root.ExecuteContext(ctx))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, trader.ErrMarketClosed):
		return 0
	default:
		logger.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
}
