package eth

import (
	"math/big"
	"strings"
)

// Layout of transfer(address,uint256) call data as a hex string: the 0x
// prefix and 4-byte selector, then two 32-byte words. The address is the low
// 20 bytes of the first word.
const (
	TransferSelector = "0xa9059cbb"

	transferRecipientStart = 34
	transferRecipientEnd   = 74
	transferAmountEnd      = 138
	transferCallMinLength  = transferAmountEnd
)

// TokenTransferIntent is the recipient and raw amount of an ERC-20 transfer call.
type TokenTransferIntent struct {
	Recipient string
	Amount    *big.Int
}

// DecodeTransferCall extracts recipient and amount from ERC-20 transfer call
// data. An amount word that is not valid hex decodes as zero.
func DecodeTransferCall(input string) (*TokenTransferIntent, bool) {
	if len(input) < transferCallMinLength {
		return nil, false
	}
	if !strings.HasPrefix(input, TransferSelector) {
		return nil, false
	}

	amount, ok := new(big.Int).SetString(input[transferRecipientEnd:transferAmountEnd], 16)
	if !ok {
		amount = new(big.Int)
	}

	return &TokenTransferIntent{
		Recipient: "0x" + input[transferRecipientStart:transferRecipientEnd],
		Amount:    amount,
	}, true
}
