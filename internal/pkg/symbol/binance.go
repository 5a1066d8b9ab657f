package symbol

import "strings"

type BinanceConverter struct{}

func (BinanceConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "/", "")
}

// FromExchange maps BTCUSDT back to BTC/USDT. Codes with an unknown quote are
// returned upper-cased as they came.
func (BinanceConverter) FromExchange(raw string) string {
	if norm := Parse(raw).Internal(); norm != "" {
		return norm
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (BinanceConverter) Format() Format {
	return FormatBinance
}

var Binance = BinanceConverter{}
