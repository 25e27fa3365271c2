package market

import (
	"fmt"
	"math"
)

// Instrument is the contract specification the sizing and spread math
// depends on. PipLocation follows the power-of-ten convention: a pip is
// 10^PipLocation in price terms (-4 for most FX pairs, -2 for JPY pairs).
type Instrument struct {
	Symbol        string
	BaseCurrency  string
	QuoteCurrency string
	PipLocation   int
	ContractSize  float64 // units of base per 1.0 lot
	MinLot        float64
	LotStep       float64
	MaxLot        float64
}

// PipSize returns one pip in price terms.
func (i Instrument) PipSize() float64 {
	return math.Pow(10, float64(i.PipLocation))
}

// PipValuePerLot returns the account-currency value of one pip for one
// lot, given the quote-to-account conversion rate.
func (i Instrument) PipValuePerLot(rate float64) float64 {
	return i.ContractSize * i.PipSize() * rate
}

// Instruments is the built-in contract table for the default symbols.
var Instruments = map[string]Instrument{
	"EURUSD": {
		Symbol:        "EURUSD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		ContractSize:  100000,
		MinLot:        0.01,
		LotStep:       0.01,
		MaxLot:        100,
	},
	"GBPUSD": {
		Symbol:        "GBPUSD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		ContractSize:  100000,
		MinLot:        0.01,
		LotStep:       0.01,
		MaxLot:        100,
	},
	"USDJPY": {
		Symbol:        "USDJPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		PipLocation:   -2,
		ContractSize:  100000,
		MinLot:        0.01,
		LotStep:       0.01,
		MaxLot:        100,
	},
	"XAUUSD": {
		Symbol:        "XAUUSD",
		BaseCurrency:  "XAU",
		QuoteCurrency: "USD",
		PipLocation:   -1,
		ContractSize:  100,
		MinLot:        0.01,
		LotStep:       0.01,
		MaxLot:        100,
	},
}

// Find looks up an instrument by symbol.
func Find(symbol string) (Instrument, bool) {
	i, ok := Instruments[symbol]
	return i, ok
}

// QuoteToAccountRate converts one unit of the instrument's quote currency
// into the account currency, using the supplied tick for the inverse case.
func QuoteToAccountRate(inst Instrument, accountCurrency string, t Tick) (float64, error) {
	// Quote currency == account currency (EURUSD, XAUUSD with a USD account).
	if inst.QuoteCurrency == accountCurrency {
		return 1.0, nil
	}

	// Account currency is the base (USDJPY with a USD account): the mid
	// gives quote per base, we want the inverse.
	if inst.BaseCurrency == accountCurrency {
		mid := t.Mid()
		if mid <= 0 {
			return 0, fmt.Errorf("no usable quote for %s", inst.Symbol)
		}
		return 1.0 / mid, nil
	}

	return 0, fmt.Errorf("cross conversion not supported: %s into %s",
		inst.QuoteCurrency, accountCurrency)
}
