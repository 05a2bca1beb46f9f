package sla

import (
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"
)

// ReportDegraded logs and counts every degraded classification in cs. cs must
// cover all active orders: the degraded-orders gauge is replaced, not added to.
func ReportDegraded(log *logger.Logger, cs []Classification) int {
	byStatus := make(map[string]int)
	n := 0
	for _, c := range cs {
		d, ok := c.Degradation()
		if !ok {
			continue
		}
		n++
		byStatus[d.Status]++
		metrics.SLAClassificationDegradedTotal.WithLabelValues(d.Status).Inc()
		if log != nil {
			log.ClassificationDegraded(d.OrderID.String(), d.Status, d.Reason)
		}
	}

	metrics.SLADegradedOrders.Reset()
	for status, count := range byStatus {
		metrics.SLADegradedOrders.WithLabelValues(status).Set(float64(count))
	}
	return n
}
