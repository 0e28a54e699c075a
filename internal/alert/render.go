package alert

import (
	"fmt"
	"strings"

	"smart-wallet-engine/internal/domain"
)

// RenderSignal formats a consensus signal as a Telegram markdown message
// with chart and explorer links.
func RenderSignal(sig *domain.ConsensusSignal, perf *domain.SignalPerformance) string {
	var b strings.Builder

	emoji := "🤝"
	if sig.SignalType == domain.SignalExceptionalConsensus {
		emoji = "💎"
	}

	fmt.Fprintf(&b, "%s *%s* — %s\n\n", emoji, sig.TokenSymbol, signalTypeLabel(sig.SignalType))
	fmt.Fprintf(&b, "Whales: *%d* (%d exceptional, %d normal)\n",
		sig.WhaleCount, sig.ExceptionalCount, sig.NormalCount)
	fmt.Fprintf(&b, "Invested: *%s*\n", formatUSD(sig.TotalInvestedUSD))
	fmt.Fprintf(&b, "Avg entry: $%s\n", formatPrice(sig.AvgEntryPrice))
	fmt.Fprintf(&b, "Market cap: %s · Liquidity: %s\n",
		formatUSD(sig.MarketCap), formatUSD(sig.Liquidity))

	if perf != nil {
		fmt.Fprintf(&b, "\nPerformance: *%+.1f%%* (%s, %.1fd held)\n",
			perf.ChangePercent, perf.Status, perf.DaysHeld)
	}

	if len(sig.Whales) > 0 {
		b.WriteString("\n*Top wallets:*\n")
		limit := len(sig.Whales)
		if limit > 5 {
			limit = 5
		}
		for _, w := range sig.Whales[:limit] {
			fmt.Fprintf(&b, "· `%s` %s %s\n",
				shortAddress(w.Wallet), formatUSD(w.InvestedUSD), statusBadge(w.Status))
		}
	}

	fmt.Fprintf(&b, "\n[Chart](https://birdeye.so/token/%s) · [Explorer](https://solscan.io/token/%s)\n`%s`",
		sig.Contract, sig.Contract, sig.Contract)

	return b.String()
}

func signalTypeLabel(signalType string) string {
	switch signalType {
	case domain.SignalExceptionalConsensus:
		return "Exceptional Consensus"
	case domain.SignalMixedConsensus:
		return "Mixed Consensus"
	default:
		return signalType
	}
}

func statusBadge(status string) string {
	if domain.IsExceptionalClass(status) {
		return "⭐"
	}
	return ""
}

func shortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func formatUSD(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%.2fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func formatPrice(v float64) string {
	switch {
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	case v >= 0.0001:
		return fmt.Sprintf("%.6f", v)
	default:
		return fmt.Sprintf("%.10f", v)
	}
}
