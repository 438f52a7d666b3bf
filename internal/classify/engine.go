package classify

import (
	"context"

	"github.com/6529-Collections/whale-monitor/internal/alert"
	"github.com/6529-Collections/whale-monitor/internal/eth"
	"github.com/6529-Collections/whale-monitor/internal/price"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Rules holds the fixed alert thresholds, in whole units. Decimals is the
// exponent used to scale both native values and token amounts.
type Rules struct {
	NativeThreshold decimal.Decimal
	TokenThreshold  decimal.Decimal
	Decimals        int32
}

func DefaultRules() Rules {
	return Rules{
		NativeThreshold: decimal.NewFromInt(50),
		TokenThreshold:  decimal.NewFromInt(10_000),
		Decimals:        18,
	}
}

type TokenLookup interface {
	LookupByAddress(addr string) (string, bool)
}

type Classifier interface {
	Classify(ctx context.Context, tx eth.Transaction) []alert.Event
}

type Engine struct {
	oracle       price.Oracle
	registry     TokenLookup
	rules        Rules
	nativeSymbol string
}

func NewEngine(oracle price.Oracle, registry TokenLookup, rules Rules) *Engine {
	return &Engine{
		oracle:       oracle,
		registry:     registry,
		rules:        rules,
		nativeSymbol: alert.DefaultNativeSymbol,
	}
}

// Classify evaluates the native-value rule and then the token-transfer rule.
// The rules are independent, so a transaction yields zero, one or two events,
// native first.
func (e *Engine) Classify(ctx context.Context, tx eth.Transaction) []alert.Event {
	var events []alert.Event
	if ev, ok := e.nativeWhale(ctx, tx); ok {
		events = append(events, ev)
	}
	if ev, ok := e.tokenWhale(tx); ok {
		events = append(events, ev)
	}
	return events
}

func (e *Engine) nativeWhale(ctx context.Context, tx eth.Transaction) (alert.Event, bool) {
	amount := eth.ToWholeUnits(tx.Value, e.rules.Decimals)
	if amount.LessThan(e.rules.NativeThreshold) {
		return alert.Event{}, false
	}

	usd, err := e.oracle.NativePriceUSD(ctx)
	if err != nil {
		zap.L().Error("Skipping native whale alert, price unavailable",
			zap.String("txHash", tx.Hash),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return alert.Event{}, false
	}

	return alert.Event{
		Kind:      alert.NativeWhale,
		Tx:        tx,
		Symbol:    e.nativeSymbol,
		Amount:    amount,
		PriceUSD:  decimal.NewNullDecimal(usd),
		ValueUSD:  decimal.NewNullDecimal(amount.Mul(usd)),
		Recipient: tx.To,
	}, true
}

func (e *Engine) tokenWhale(tx eth.Transaction) (alert.Event, bool) {
	symbol, ok := e.registry.LookupByAddress(tx.To)
	if !ok {
		return alert.Event{}, false
	}
	intent, ok := eth.DecodeTransferCall(tx.Input)
	if !ok {
		return alert.Event{}, false
	}

	amount := eth.ToWholeUnits(intent.Amount, e.rules.Decimals)
	if amount.LessThan(e.rules.TokenThreshold) {
		return alert.Event{}, false
	}

	return alert.Event{
		Kind:      alert.TokenWhale,
		Tx:        tx,
		Symbol:    symbol,
		Amount:    amount,
		Recipient: intent.Recipient,
	}, true
}
