package trader

import (
	"context"
	"errors"
	"fmt"

	"supertrader/internal/logger"
)

// CloseAll offsets every held position with a market order, then polls until
// each symbol whose close was accepted shows zero quantity. Symbols whose close
// failed are left out of the wait; their errors are joined into the result.
func (t *Trader) CloseAll(ctx context.Context) error {
	held, err := t.Holdings(ctx, AllSymbols)
	if err != nil {
		return fmt.Errorf("sell_all: list holdings: %w", err)
	}
	t.info(fmt.Sprintf("sell_all -> %d position(s)", len(held)), true)

	var (
		errs    []error
		pending = make(map[string]struct{}, len(held))
	)
	for _, p := range held {
		if _, err := t.Execute(ctx, p.Symbol, -p.Quantity, Market); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Symbol, err))
			continue
		}
		pending[p.Symbol] = struct{}{}
	}

	if err := t.awaitFlat(ctx, pending); err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	if len(errs) == 0 {
		t.info("sell_all...OK", true)
	} else {
		t.notify.Send(fmt.Sprintf("sell_all finished with %d failed close(s)", len(errs)), logger.LevelWarning, true)
	}
	return errors.Join(errs...)
}

func (t *Trader) awaitFlat(ctx context.Context, pending map[string]struct{}) error {
	for len(pending) > 0 {
		if err := t.sleep(ctx, t.opts.LiquidationPollInterval); err != nil {
			return fmt.Errorf("sell_all: waiting for flat positions: %w", err)
		}
		held, err := t.Holdings(ctx, AllSymbols)
		if err != nil {
			return fmt.Errorf("sell_all: poll holdings: %w", err)
		}
		still := make(map[string]struct{}, len(held))
		for _, p := range held {
			still[p.Symbol] = struct{}{}
		}
		for sym := range pending {
			if _, ok := still[sym]; !ok {
				delete(pending, sym)
			}
		}
	}
	return nil
}
