package alert

import (
	"fmt"

	"github.com/6529-Collections/whale-monitor/internal/eth"
	"github.com/shopspring/decimal"
)

type Kind int

const (
	NativeWhale Kind = iota
	TokenWhale
)

func (k Kind) String() string {
	switch k {
	case NativeWhale:
		return "native_whale"
	case TokenWhale:
		return "token_whale"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a classified whale transaction waiting to be delivered.
// PriceUSD and ValueUSD are only set for NativeWhale events.
type Event struct {
	Kind      Kind                `json:"kind"`
	Tx        eth.Transaction     `json:"tx"`
	Symbol    string              `json:"symbol"`
	Amount    decimal.Decimal     `json:"amount"`
	PriceUSD  decimal.NullDecimal `json:"price_usd"`
	ValueUSD  decimal.NullDecimal `json:"value_usd"`
	Recipient string              `json:"recipient"`
}
