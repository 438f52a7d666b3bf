package alert

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	DefaultNativeSymbol = "ETH"
	startupMessage      = "🚀 Whale Bot Started! Monitoring large %s and ERC-20 transactions..."
)

// Formatter renders events as Telegram-flavoured markdown. It does no I/O.
type Formatter struct {
	ExplorerURL  string
	NativeSymbol string
}

func NewFormatter(explorerURL string) Formatter {
	return Formatter{
		ExplorerURL:  strings.TrimRight(explorerURL, "/"),
		NativeSymbol: DefaultNativeSymbol,
	}
}

func (f Formatter) Startup() string {
	return fmt.Sprintf(startupMessage, f.NativeSymbol)
}

func (f Formatter) Format(e Event) string {
	var b strings.Builder
	b.WriteString("🚨 *Whale Alert* 🚨\n")

	switch e.Kind {
	case NativeWhale:
		fmt.Fprintf(&b, "💰 *%s %s* ($%s)\n", e.Amount.StringFixed(2), f.NativeSymbol, groupThousands(e.ValueUSD.Decimal, 2))
		fmt.Fprintf(&b, "📉 1 %s = $%s\n", f.NativeSymbol, groupThousands(e.PriceUSD.Decimal, 2))
	case TokenWhale:
		fmt.Fprintf(&b, "💰 *%s %s* transferred!\n", groupThousands(e.Amount, 0), e.Symbol)
	}

	fmt.Fprintf(&b, "🔄 From: %s\n", f.addressLink(e.Tx.From))
	fmt.Fprintf(&b, "➡️ To: %s\n", f.addressLink(e.Recipient))
	fmt.Fprintf(&b, "🔗 [View Transaction](%s)", f.TxURL(e.Tx.Hash))
	return b.String()
}

func (f Formatter) AddressURL(addr string) string {
	return f.ExplorerURL + "/address/" + addr
}

func (f Formatter) TxURL(hash string) string {
	return f.ExplorerURL + "/tx/" + hash
}

func (f Formatter) addressLink(addr string) string {
	return fmt.Sprintf("[%s](%s)", ShortAddress(addr), f.AddressURL(addr))
}

// ShortAddress keeps the first six and last four characters of addr.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// groupThousands rounds d to places decimals and separates the integer part
// with commas, e.g. 150000 -> "150,000.00".
func groupThousands(d decimal.Decimal, places int32) string {
	rounded := d.Round(places)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	out := sign + humanize.BigComma(rounded.Truncate(0).BigInt())
	if places > 0 {
		fixed := rounded.StringFixed(places)
		out += fixed[strings.IndexByte(fixed, '.'):]
	}
	return out
}

