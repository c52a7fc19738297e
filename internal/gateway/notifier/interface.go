package notifier

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram, SMTP).
type TextNotifier interface {
	SendText(text string) error
}

// FundsAlert is the structured event emitted when an order is aborted for
// insufficient balance. Delivery failure must never fail the engine.
type FundsAlert struct {
	EventID          string
	VenueName        string
	OrderID          int64
	OrderType        string
	Side             string
	Amount           float64
	Symbol           string
	AvailableBalance float64
	RequiredValue    float64
	BalanceCurrency  string
}

// AlertSink receives insufficient-balance events from the execution engine.
type AlertSink interface {
	InsufficientFunds(alert FundsAlert)
}
