package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Symbol{
		"btc/usdt":      {Base: "BTC", Quote: "USDT"},
		"BTCUSDT":       {Base: "BTC", Quote: "USDT"},
		"ETH/USDT:USDT": {Base: "ETH", Quote: "USDT"},
		"ETHBTC":        {Base: "ETH", Quote: "BTC"},
		"":              {},
		"USDT":          {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
	assert.Equal(t, "SOL/USDT", Normalize("solusdt"))
}

func TestBinanceConverter(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Binance.ToExchange("btc/usdt"))
	assert.Equal(t, "BTCUSDT", Binance.ToExchange("BTC/USDT:USDT"))
	assert.Equal(t, "BTC/USDT", Binance.FromExchange("BTCUSDT"))
	assert.Equal(t, "XYZABC", Binance.FromExchange("xyzabc"))
	assert.Equal(t, FormatBinance, Binance.Format())
}

func TestCreonConverter(t *testing.T) {
	assert.Equal(t, "A005930", Creon.ToExchange("005930"))
	assert.Equal(t, "A005930", Creon.ToExchange("a005930"))
	assert.Equal(t, "A005930", Creon.FromExchange(" A005930 "))
	assert.Equal(t, "", Creon.ToExchange(" "))
}
