package middleware

import (
	"net/http"
	"strconv"
	"time"

	"storefront/pkg/metrics"

	"github.com/labstack/echo/v4"
)

// RequestMetrics observes handler latency by route template, so /orders/1
// and /orders/2 share one series.
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status, _ = Translate(err)
			}
			if status == 0 {
				status = http.StatusOK
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
