package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "colony_loyalty"

var (
	// LoginAttempts counts staff logins by result (success, invalid, inactive, error)
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "staff_login_attempts_total",
		Help:      "Staff login attempts by result.",
	}, []string{"result"})

	// StaffRegistered counts new staff accounts
	StaffRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "staff_registered_total",
		Help:      "Staff accounts created.",
	})

	// VisitsAwarded counts loyalty visits recorded
	VisitsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_awarded_total",
		Help:      "Loyalty visits recorded.",
	})

	// PointsAwarded sums the points credited to members
	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_awarded_total",
		Help:      "Loyalty points credited.",
	})

	// VisitsRejected counts visits refused by reason (membership, amount, error)
	VisitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_rejected_total",
		Help:      "Loyalty visits rejected by reason.",
	}, []string{"reason"})
)

// Handler exposes the default registry in the Prometheus text format
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
