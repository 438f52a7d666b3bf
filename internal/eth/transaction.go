package eth

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// UnknownAddress stands in for a missing sender or recipient, e.g. the "to"
// of a contract creation.
const UnknownAddress = "Unknown"

// Transaction is a mined transaction as pushed by the feed. It lives for the
// duration of a single message.
type Transaction struct {
	Hash  string   `json:"hash"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *big.Int `json:"value"`
	Input string   `json:"input"`
}

// ToWholeUnits scales an amount in the smallest unit down by 10^decimals.
func ToWholeUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
