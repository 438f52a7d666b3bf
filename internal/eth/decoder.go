package eth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrMalformedMessage = errors.New("malformed feed message")
	ErrInvalidValue     = errors.New("invalid transaction value")
)

// RPCError is a JSON-RPC error reply from the feed, e.g. a rejected
// eth_subscribe.
type RPCError struct {
	ID      json.RawMessage `json:"-"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
}

func (e *RPCError) Error() string {
	if len(e.ID) > 0 {
		return fmt.Sprintf("json-rpc error %d (id %s): %s", e.Code, e.ID, e.Message)
	}
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

type TransactionDecoder interface {
	// Decode returns (nil, nil) for messages that do not carry a transaction,
	// such as subscription confirmations. A JSON-RPC error reply is returned
	// as a *RPCError.
	Decode(raw []byte) (*Transaction, error)
}

type DefaultTransactionDecoder struct{}

func NewDefaultTransactionDecoder() *DefaultTransactionDecoder {
	return &DefaultTransactionDecoder{}
}

type feedEnvelope struct {
	ID     json.RawMessage `json:"id"`
	Params json.RawMessage `json:"params"`
	Error  json.RawMessage `json:"error"`
}

type feedParams struct {
	Result json.RawMessage `json:"result"`
}

type minedTransactionResult struct {
	Transaction json.RawMessage `json:"transaction"`
}

type feedTransaction struct {
	Hash  string  `json:"hash"`
	From  *string `json:"from"`
	To    *string `json:"to"`
	Value *string `json:"value"`
	Input string  `json:"input"`
}

func (d *DefaultTransactionDecoder) Decode(raw []byte) (*Transaction, error) {
	if !json.Valid(raw) {
		return nil, ErrMalformedMessage
	}

	var env feedEnvelope
	if !isJSONObject(raw) || json.Unmarshal(raw, &env) != nil {
		zap.L().Debug("Ignoring feed message that is not a JSON object")
		return nil, nil
	}
	if !isEmptyJSON(env.Error) {
		return nil, decodeRPCError(env.ID, env.Error)
	}

	var params feedParams
	if !isJSONObject(env.Params) || json.Unmarshal(env.Params, &params) != nil {
		zap.L().Debug("Ignoring feed message without params")
		return nil, nil
	}

	var result minedTransactionResult
	if !isJSONObject(params.Result) || json.Unmarshal(params.Result, &result) != nil {
		zap.L().Debug("Ignoring feed message without params.result")
		return nil, nil
	}
	if !isJSONObject(result.Transaction) {
		zap.L().Debug("Ignoring feed message without a transaction")
		return nil, nil
	}

	var ftx feedTransaction
	if err := json.Unmarshal(result.Transaction, &ftx); err != nil {
		return nil, fmt.Errorf("%w: transaction: %v", ErrMalformedMessage, err)
	}

	valueHex := "0x0"
	if ftx.Value != nil {
		valueHex = *ftx.Value
	}
	value, ok := parseHexQuantity(valueHex)
	if !ok {
		return nil, fmt.Errorf("%w %q in tx %s", ErrInvalidValue, valueHex, ftx.Hash)
	}

	return &Transaction{
		Hash:  ftx.Hash,
		From:  addressOrUnknown(ftx.From),
		To:    addressOrUnknown(ftx.To),
		Value: value,
		Input: ftx.Input,
	}, nil
}

// parseHexQuantity accepts a 0x-prefixed hex integer of any length, leading
// zeros included.
func parseHexQuantity(s string) (*big.Int, bool) {
	if len(s) < 3 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return nil, false
	}
	digits := s[2:]
	if digits[0] == '+' || digits[0] == '-' {
		return nil, false
	}
	return new(big.Int).SetString(digits, 16)
}

func decodeRPCError(id json.RawMessage, raw json.RawMessage) *RPCError {
	rpcErr := &RPCError{}
	if err := json.Unmarshal(raw, rpcErr); err != nil {
		rpcErr.Message = string(raw)
	}
	if !isEmptyJSON(id) {
		rpcErr.ID = id
	}
	return rpcErr
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func addressOrUnknown(addr *string) string {
	if addr == nil || *addr == "" {
		return UnknownAddress
	}
	return *addr
}
