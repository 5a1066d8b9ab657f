package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"supertrader/internal/logger"
	"supertrader/internal/store/gormstore"
	livehttp "supertrader/internal/transport/http/live"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the broker session open behind the operator HTTP API",
		Long: `Serve runs the startup checks once and then exposes the session over HTTP
until interrupted:

  GET    /healthz
  GET    /api/price?symbol=
  GET    /api/balance
  GET    /api/positions?symbol=all
  GET    /api/orders?symbol=&limit=
  POST   /api/orders        {"symbol": "BTC/USDT", "quantity": -0.5, "price": "market"}
  DELETE /api/orders/:id?symbol=
  POST   /api/liquidate`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, s *session) error {
			if strings.TrimSpace(addr) == "" {
				addr = s.cfg.HTTP.Addr
			}
			scfg := livehttp.ServerConfig{Addr: addr, Trading: s.trader}
			if s.journal != nil {
				scfg.Orders = s.journal
			}
			srv, err := livehttp.NewServer(scfg)
			if err != nil {
				return err
			}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Infof("operator API listening on %s", srv.Addr())
				return srv.Start(gctx)
			})
			s.notify.Info(fmt.Sprintf("serve -> broker: %s, addr: %s", s.trader.Broker().Name(), srv.Addr()), true)
			return g.Wait()
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr from the config)")
	return cmd
}

func newOrdersCmd(opts *rootOptions) *cobra.Command {
	var filter gormstore.OrderFilter
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List journaled orders, newest first",
		Long: `Orders reads the local order journal (store.path). It does not contact
any broker and works on closed market days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logFile, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			defer closeLog(logFile)
			if strings.TrimSpace(cfg.Store.Path) == "" {
				return fmt.Errorf("store.path is not configured; the order journal is disabled")
			}
			j, err := gormstore.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer j.Close()
			records, err := j.ListOrders(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printResult(opts.out, opts.format, records, func(w io.Writer) {
				for _, r := range records {
					line := fmt.Sprintf("%s %-10s %-7s %-12s %s qty=%s", r.CreatedAt.Format("2006-01-02 15:04:05"),
						r.Action, r.Broker, r.Symbol, r.Side, num(r.Quantity))
					if r.OrderID != "" {
						line += " id=" + r.OrderID + " status=" + r.Status
					}
					if r.Error != "" {
						line += " error=" + r.Error
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&filter.Symbol, "symbol", "s", "", "only this symbol")
	cmd.Flags().StringVar(&filter.Broker, "only-broker", "", "only this broker")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "maximum rows")
	return cmd
}
