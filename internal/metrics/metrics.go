// Package metrics содержит счетчики Prometheus для пути проверки квоты.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrackRequests считает запросы trackUsage по исходу проверки.
var TrackRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "usage_track_requests_total",
		Help: "Track usage requests by decision outcome",
	},
	[]string{"decision"},
)

// Возможные значения метки decision.
const (
	DecisionAllowed            = "allowed"
	DecisionInvalidToken       = "invalid_token"
	DecisionPlanExpired        = "plan_expired"
	DecisionPlanNotFound       = "plan_not_found"
	DecisionFeatureNotEntitled = "feature_not_entitled"
	DecisionRateLimited        = "rate_limited"
	DecisionQuotaExceeded      = "quota_exceeded"
	DecisionError              = "error"
)
