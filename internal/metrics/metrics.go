package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callcentre_bot",
			Name:      "order_transitions_total",
			Help:      "Count of order status transitions by target status.",
		},
		[]string{"to"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callcentre_bot",
			Name:      "notifications_total",
			Help:      "Count of Telegram dispatches by result.",
		},
		[]string{"result"},
	)

	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callcentre_bot",
			Name:      "webhook_requests_total",
			Help:      "Count of CRM webhook requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	cashEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callcentre_bot",
			Name:      "cash_entries_total",
			Help:      "Count of cash ledger lines appended by type.",
		},
		[]string{"type"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(orderTransitions, notifications, webhookRequests, cashEntries)
	})
}

func IncOrderTransition(to string) {
	orderTransitions.WithLabelValues(to).Inc()
}

func IncNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}

func IncWebhookRequest(endpoint, outcome string) {
	webhookRequests.WithLabelValues(endpoint, outcome).Inc()
}

func IncCashEntry(entryType string) {
	cashEntries.WithLabelValues(entryType).Inc()
}
