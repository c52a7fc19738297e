package notifier

import (
	"exeq/internal/logger"

	"github.com/google/uuid"
)

// Multi fans one alert out to every configured backend. Send failures are
// logged and swallowed so a broken notifier channel cannot stall execution.
type Multi struct {
	backends []TextNotifier
}

func NewMulti(backends ...TextNotifier) *Multi {
	out := make([]TextNotifier, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			out = append(out, b)
		}
	}
	return &Multi{backends: out}
}

func (m *Multi) InsufficientFunds(alert FundsAlert) {
	if alert.EventID == "" {
		alert.EventID = uuid.NewString()
	}
	logger.Warnf("notifier: insufficient funds event=%s venue=%s order=%d required=%v available=%v %s",
		alert.EventID, alert.VenueName, alert.OrderID, alert.RequiredValue, alert.AvailableBalance, alert.BalanceCurrency)
	if m == nil || len(m.backends) == 0 {
		return
	}
	text := RenderFundsAlert(alert)
	for _, b := range m.backends {
		if err := b.SendText(text); err != nil {
			logger.Errorf("notifier: delivery failed event=%s err=%v", alert.EventID, err)
		}
	}
}

var _ AlertSink = (*Multi)(nil)
