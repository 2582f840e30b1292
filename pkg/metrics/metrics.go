package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Latency of every HTTP handler, labelled by route template
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Latency of HTTP handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// Order placements by outcome (placed, insufficient_stock, not_found, invalid, error)
	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Order placement attempts by outcome",
	}, []string{"outcome"})

	OrderStatusChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_changes_total",
		Help: "Applied order status transitions by target status",
	}, []string{"status"})

	StockConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stock_conflicts_total",
		Help: "Orders rolled back because a product could not cover the quantity",
	})

	CartClearFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_clear_failures_total",
		Help: "Carts left behind after a committed order",
	})

	// Notification deliveries by channel (email, push) and outcome (sent, failed)
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notifications_total",
		Help: "Notification deliveries by channel and outcome",
	}, []string{"channel", "outcome"})

	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_registrations_total",
		Help: "Account registrations by provider (password, google)",
	}, []string{"provider"})

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestDuration,
			OrdersPlaced,
			OrderStatusChanges,
			StockConflicts,
			CartClearFailures,
			Notifications,
			Registrations,
		)
	})
}
