package tokens

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Entry pairs a token symbol with its ERC-20 contract address.
type Entry struct {
	Symbol  string
	Address common.Address
}

// Registry is the fixed set of tracked tokens. It is never mutated after
// construction, so it can be shared freely.
type Registry struct {
	entries   []Entry
	byAddress map[common.Address]string
}

var topErc20Tokens = []struct {
	symbol  string
	address string
}{
	{"USDT", "0xdac17f958d2ee523a2206206994597c13d831ec7"},
	{"USDC", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
	{"WBTC", "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"},
	{"DAI", "0x6b175474e89094c44da98b954eedeac495271d0f"},
	{"LINK", "0x514910771af9ca656af840dff83e8264ecf986ca"},
	{"UNI", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"},
	{"MATIC", "0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0"},
	{"SHIB", "0x95ad61b0a150d79219dcf64e1e6cc01f0b64c4ce"},
	{"LDO", "0x5a98fcbea516cf06857215779fd812ca3bef1b32"},
	{"AAVE", "0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9"},
}

// DefaultRegistry returns the ten ERC-20 tokens tracked on Ethereum mainnet.
func DefaultRegistry() *Registry {
	entries := make([]Entry, len(topErc20Tokens))
	for i, t := range topErc20Tokens {
		entries[i] = Entry{Symbol: t.symbol, Address: common.HexToAddress(t.address)}
	}
	r, err := NewRegistry(entries)
	if err != nil {
		panic(fmt.Sprintf("invalid default token registry: %v", err))
	}
	return r
}

func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries:   make([]Entry, 0, len(entries)),
		byAddress: make(map[common.Address]string, len(entries)),
	}
	symbols := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Symbol == "" {
			return nil, fmt.Errorf("empty symbol for address %s", e.Address.Hex())
		}
		if symbols[e.Symbol] {
			return nil, fmt.Errorf("duplicate symbol %s", e.Symbol)
		}
		if existing, ok := r.byAddress[e.Address]; ok {
			return nil, fmt.Errorf("address %s registered for both %s and %s", e.Address.Hex(), existing, e.Symbol)
		}
		symbols[e.Symbol] = true
		r.byAddress[e.Address] = e.Symbol
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// LookupByAddress matches addr against the registry ignoring letter case.
// Anything that is not a 20-byte hex address, such as "Unknown", never matches.
func (r *Registry) LookupByAddress(addr string) (string, bool) {
	if !common.IsHexAddress(addr) {
		return "", false
	}
	symbol, ok := r.byAddress[common.HexToAddress(addr)]
	return symbol, ok
}

// Entries returns the registered tokens in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Len() int {
	return len(r.entries)
}
