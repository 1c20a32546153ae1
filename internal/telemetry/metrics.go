package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mentorlink/workflow"

// WorkflowMetrics counts booking state changes and lost races.
// Built on the global meter provider, so it is a no-op until Initialize runs.
type WorkflowMetrics struct {
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
}

func NewWorkflowMetrics() *WorkflowMetrics {
	meter := otel.Meter(meterName)

	transitions, _ := meter.Int64Counter("workflow.transitions",
		metric.WithDescription("Committed booking state transitions"),
	)
	conflicts, _ := meter.Int64Counter("workflow.conflicts",
		metric.WithDescription("Workflow mutations rejected because state changed underneath"),
	)

	return &WorkflowMetrics{transitions: transitions, conflicts: conflicts}
}

// Transition records a committed move between two statuses.
func (m *WorkflowMetrics) Transition(ctx context.Context, event, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// Conflict records a compare-and-set loss for an operation.
func (m *WorkflowMetrics) Conflict(ctx context.Context, operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
