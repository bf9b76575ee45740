package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type authMetrics struct {
	logins        metric.Int64Counter
	rotations     metric.Int64Counter
	rejections    metric.Int64Counter
	reuseDetected metric.Int64Counter
	capEvictions  metric.Int64Counter
	revocations   metric.Int64Counter
}

func newAuthMetrics() *authMetrics {
	meter := otel.Meter("splendoura/backend/internal/auth/service")
	m := &authMetrics{}
	m.logins, _ = meter.Int64Counter("auth.logins",
		metric.WithDescription("Sessions issued via credential login."))
	m.rotations, _ = meter.Int64Counter("auth.rotations",
		metric.WithDescription("Successful refresh token rotations."))
	m.rejections, _ = meter.Int64Counter("auth.rejections",
		metric.WithDescription("Rejected token presentations, by reason."))
	m.reuseDetected, _ = meter.Int64Counter("auth.reuse_detected",
		metric.WithDescription("Refresh token replays that triggered lineage revocation."))
	m.capEvictions, _ = meter.Int64Counter("auth.cap_evictions",
		metric.WithDescription("Sessions revoked by the per-user active session cap."))
	m.revocations, _ = meter.Int64Counter("auth.revocations",
		metric.WithDescription("Sessions revoked by explicit logout."))
	return m
}

func (m *authMetrics) rejected(ctx context.Context, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *authMetrics) add(ctx context.Context, c metric.Int64Counter, n int64) {
	if m == nil || c == nil {
		return
	}
	c.Add(ctx, n)
}
