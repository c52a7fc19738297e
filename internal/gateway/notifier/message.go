package notifier

import (
	"fmt"
	"strings"
)

const insufficientFundsSubject = "Order Execution Failed Due to Insufficient Funds"

// RenderFundsAlert formats the alert as a plain-text message suitable for any
// TextNotifier backend.
func RenderFundsAlert(a FundsAlert) string {
	var b strings.Builder
	b.WriteString(insufficientFundsSubject + "\n\n")
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "- Exchange: %s\n", a.VenueName)
	fmt.Fprintf(&b, "- Order ID: %d\n", a.OrderID)
	fmt.Fprintf(&b, "- Order Type: %s\n", a.OrderType)
	fmt.Fprintf(&b, "- Side: %s\n", a.Side)
	fmt.Fprintf(&b, "- Amount: %v\n", a.Amount)
	fmt.Fprintf(&b, "- Symbol: %s\n", a.Symbol)
	fmt.Fprintf(&b, "- Available Balance: %v %s\n", a.AvailableBalance, a.BalanceCurrency)
	fmt.Fprintf(&b, "- Required Balance: %v %s\n\n", a.RequiredValue, a.BalanceCurrency)
	b.WriteString("Please ensure sufficient funds are available to execute the order.")
	return b.String()
}
