// Package metrics exposes the service counters on /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapcooking_links_created_total",
		Help: "Short links created, by type.",
	}, []string{"type"})

	RedirectsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapcooking_redirects_served_total",
		Help: "Short link redirects served.",
	})

	PaymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapcooking_payments_completed_total",
		Help: "Membership payments completed, by method.",
	}, []string{"method"})
)

func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
