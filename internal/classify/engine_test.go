package classify

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/6529-Collections/whale-monitor/internal/alert"
	"github.com/6529-Collections/whale-monitor/internal/eth"
	"github.com/6529-Collections/whale-monitor/internal/price"
	"github.com/6529-Collections/whale-monitor/pkg/tokens"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	usdtAddress   = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	tokenReceiver = "0x1111111254eeb25477b68fb85ed929f73a960582"
)

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) NativePriceUSD(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func wei(whole string) *big.Int {
	d := decimal.RequireFromString(whole).Shift(18)
	return d.BigInt()
}

func transferInput(amount *big.Int) string {
	return eth.TransferSelector + strings.Repeat("0", 24) + strings.TrimPrefix(tokenReceiver, "0x") + fmt.Sprintf("%064x", amount)
}

func newEngine(oracle price.Oracle) *Engine {
	return NewEngine(oracle, tokens.DefaultRegistry(), DefaultRules())
}

func TestClassify_NativeWhaleScenario(t *testing.T) {
	value, ok := new(big.Int).SetString("2b5e3af16b1880000", 16)
	require.True(t, ok)

	oracle := &mockOracle{}
	oracle.On("NativePriceUSD", mock.Anything).Return(decimal.NewFromInt(3000), nil).Once()

	tx := eth.Transaction{Hash: "0xabc", From: "0xfrom", To: "0x00000000000000000000000000000000000000aa", Value: value}
	events := newEngine(oracle).Classify(context.Background(), tx)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, alert.NativeWhale, ev.Kind)
	assert.Equal(t, "ETH", ev.Symbol)
	assert.Equal(t, "50.00", ev.Amount.StringFixed(2))
	assert.True(t, ev.ValueUSD.Valid)
	assert.Equal(t, "150000.00", ev.ValueUSD.Decimal.StringFixed(2))
	assert.Equal(t, "3000", ev.PriceUSD.Decimal.String())
	assert.Equal(t, tx.To, ev.Recipient)
	oracle.AssertExpectations(t)
}

func TestClassify_NativeThresholdBoundary(t *testing.T) {
	tests := []struct {
		name  string
		value *big.Int
		fires bool
	}{
		{"just below", new(big.Int).Sub(wei("50"), big.NewInt(1)), false},
		{"49.999", wei("49.999"), false},
		{"exactly 50", wei("50"), true},
		{"above", wei("1234.5"), true},
		{"zero", big.NewInt(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &mockOracle{}
			oracle.On("NativePriceUSD", mock.Anything).Return(decimal.NewFromInt(2500), nil).Maybe()

			events := newEngine(oracle).Classify(context.Background(), eth.Transaction{Hash: "0x1", To: eth.UnknownAddress, Value: tt.value})
			if tt.fires {
				require.Len(t, events, 1)
				assert.Equal(t, alert.NativeWhale, events[0].Kind)
				oracle.AssertNumberOfCalls(t, "NativePriceUSD", 1)
			} else {
				assert.Empty(t, events)
				oracle.AssertNotCalled(t, "NativePriceUSD", mock.Anything)
			}
		})
	}
}

func TestClassify_TokenWhaleScenario(t *testing.T) {
	oracle := &mockOracle{}
	tx := eth.Transaction{
		Hash:  "0xdef",
		From:  "0xsender",
		To:    usdtAddress,
		Value: big.NewInt(0),
		Input: transferInput(wei("15000")),
	}

	events := newEngine(oracle).Classify(context.Background(), tx)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, alert.TokenWhale, ev.Kind)
	assert.Equal(t, "USDT", ev.Symbol)
	assert.Equal(t, "15000", ev.Amount.String())
	assert.Equal(t, tokenReceiver, ev.Recipient)
	assert.False(t, ev.ValueUSD.Valid)
	oracle.AssertNotCalled(t, "NativePriceUSD", mock.Anything)
}

func TestClassify_TokenThresholdBoundary(t *testing.T) {
	tests := []struct {
		name   string
		amount *big.Int
		fires  bool
	}{
		{"9999", wei("9999"), false},
		{"just below", new(big.Int).Sub(wei("10000"), big.NewInt(1)), false},
		{"exactly 10000", wei("10000"), true},
		{"10000.5", wei("10000.5"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := eth.Transaction{Hash: "0x1", To: usdtAddress, Value: big.NewInt(0), Input: transferInput(tt.amount)}
			events := newEngine(&mockOracle{}).Classify(context.Background(), tx)
			if tt.fires {
				require.Len(t, events, 1)
				assert.Equal(t, alert.TokenWhale, events[0].Kind)
			} else {
				assert.Empty(t, events)
			}
		})
	}
}

func TestClassify_TokenRuleRequiresRegistryMatchAndSelector(t *testing.T) {
	payload := transferInput(wei("1000000"))
	tests := []struct {
		name  string
		to    string
		input string
	}{
		{"untracked contract", "0x00000000000000000000000000000000000000aa", payload},
		{"unknown recipient", eth.UnknownAddress, payload},
		{"approve call", usdtAddress, "0x095ea7b3" + payload[10:]},
		{"short payload", usdtAddress, payload[:100]},
		{"empty payload", usdtAddress, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := eth.Transaction{Hash: "0x1", To: tt.to, Value: big.NewInt(0), Input: tt.input}
			assert.Empty(t, newEngine(&mockOracle{}).Classify(context.Background(), tx))
		})
	}
}

func TestClassify_RegistryMatchIsCaseInsensitive(t *testing.T) {
	tx := eth.Transaction{Hash: "0x1", To: "0x" + strings.ToUpper(usdtAddress[2:]), Value: big.NewInt(0), Input: transferInput(wei("20000"))}

	events := newEngine(&mockOracle{}).Classify(context.Background(), tx)
	require.Len(t, events, 1)
	assert.Equal(t, "USDT", events[0].Symbol)
}

func TestClassify_BothRulesNativeFirst(t *testing.T) {
	oracle := &mockOracle{}
	oracle.On("NativePriceUSD", mock.Anything).Return(decimal.NewFromInt(3000), nil).Once()

	tx := eth.Transaction{Hash: "0x1", To: usdtAddress, Value: wei("60"), Input: transferInput(wei("20000"))}
	events := newEngine(oracle).Classify(context.Background(), tx)

	require.Len(t, events, 2)
	assert.Equal(t, alert.NativeWhale, events[0].Kind)
	assert.Equal(t, alert.TokenWhale, events[1].Kind)
}

func TestClassify_PriceFailureSuppressesOnlyNativeEvent(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(core))

	oracle := &mockOracle{}
	oracle.On("NativePriceUSD", mock.Anything).Return(decimal.Zero, price.ErrUnavailable).Once()

	tx := eth.Transaction{Hash: "0xfeed", To: usdtAddress, Value: wei("60"), Input: transferInput(wei("20000"))}
	events := newEngine(oracle).Classify(context.Background(), tx)

	require.Len(t, events, 1)
	assert.Equal(t, alert.TokenWhale, events[0].Kind)

	entries := logs.FilterMessage("Skipping native whale alert, price unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "0xfeed", entries[0].ContextMap()["txHash"])
}

func TestClassify_CustomRules(t *testing.T) {
	oracle := &mockOracle{}
	oracle.On("NativePriceUSD", mock.Anything).Return(decimal.NewFromInt(10), nil).Once()

	rules := Rules{
		NativeThreshold: decimal.NewFromInt(1),
		TokenThreshold:  decimal.NewFromInt(5),
		Decimals:        6,
	}
	engine := NewEngine(oracle, tokens.DefaultRegistry(), rules)

	tx := eth.Transaction{Hash: "0x1", To: usdtAddress, Value: big.NewInt(1_000_000), Input: transferInput(big.NewInt(5_000_000))}
	events := engine.Classify(context.Background(), tx)

	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].Amount.String())
	assert.Equal(t, "10", events[0].ValueUSD.Decimal.String())
	assert.Equal(t, "5", events[1].Amount.String())
}
