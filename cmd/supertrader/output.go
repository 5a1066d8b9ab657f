package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"supertrader/internal/trader"

	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// printResult writes v in the requested format. Text falls back to the
// value's String method, or to text when nothing more specific applies.
func printResult(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		if text != nil {
			text(w)
			return nil
		}
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		return fmt.Errorf("unknown output format %q (supported: %s, %s, %s)", format, formatText, formatJSON, formatYAML)
	}
}

func positionsText(positions []trader.Position) func(io.Writer) {
	return func(w io.Writer) {
		if len(positions) == 0 {
			fmt.Fprintln(w, "no open positions")
			return
		}
		for _, p := range positions {
			line := fmt.Sprintf("%-12s qty=%s", p.Symbol, num(p.Quantity))
			if p.EntryPrice != 0 {
				line += " entry=" + num(p.EntryPrice)
			}
			if p.UnrealizedProfit != 0 {
				line += " upnl=" + num(p.UnrealizedProfit)
			}
			if p.Leverage != 0 {
				line += fmt.Sprintf(" leverage=%dx", p.Leverage)
			}
			if p.MarginMode != "" {
				line += " margin=" + string(p.MarginMode)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func snapshotText(s trader.AccountSnapshot) func(io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "account: %s\n", s.AccountName)
		fmt.Fprintf(w, "total asset: %s\n", num(s.TotalAsset))
		fmt.Fprintf(w, "profit: %s\n", num(s.Profit))
		fmt.Fprintf(w, "return: %.2f%%\n", s.ReturnPct)
		fmt.Fprintf(w, "cash: %s\n", num(s.Cash))
		fmt.Fprintf(w, "stock valuation: %s\n", num(s.StockValuation))
		positionsText(s.Positions)(w)
	}
}

func candlesText(candles []trader.Candle) func(io.Writer) {
	return func(w io.Writer) {
		for _, c := range candles {
			fmt.Fprintf(w, "%s o=%s h=%s l=%s c=%s v=%s\n",
				c.OpenTime.UTC().Format("2006-01-02T15:04:05Z"),
				num(c.Open), num(c.High), num(c.Low), num(c.Close), num(c.Volume))
		}
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
