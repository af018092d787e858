package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOpsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "ledger_operations_total",
			Help:      "Total ledger mutations attempted.",
		},
		[]string{"operation", "result"}, // result: "ok", "insufficient_funds", "conflict", "error"
	)

	reconcileCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "reconciliations_total",
			Help:      "Total reconciliations applied to pending requests.",
		},
		[]string{"flow", "outcome"}, // flow: "recharge", "purchase", "withdrawal"
	)

	reconcileDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletd",
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of reconciliation processing.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	queueMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "queue_messages_total",
			Help:      "Recharge response queue messages by disposition.",
		},
		[]string{"disposition"}, // "acked", "requeued", "dropped"
	)

	fulfillmentPublishCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "fulfillment_publish_total",
			Help:      "Fulfillment queue publishes after reservation commit.",
		},
		[]string{"result"}, // "ok", "error"
	)
)
