package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/config"
	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/db"
	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/metrics"
	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/snapshot"
	"github.com/jarrod-lowe/rds-snapshot-trigger/pkg/snapshotcontract"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.New()

// SnapshotStarter starts one snapshot per call
type SnapshotStarter interface {
	Start(ctx context.Context) (*snapshot.Result, error)
}

// MetricsPublisher publishes invocation outcomes
type MetricsPublisher interface {
	PublishOutcome(ctx context.Context, outcome metrics.Outcome) error
}

// Dependencies for handler (injectable for testing)
type Dependencies struct {
	Starter            SnapshotStarter
	Metrics            MetricsPublisher
	InstanceIdentifier string
	// ErrorResponses translates failures into non-200 responses instead of
	// returning them to the Lambda runtime
	ErrorResponses bool
}

var deps *Dependencies

// Status codes for translated failures
var failureStatusCodes = map[snapshot.FailureKind]int{
	snapshot.FailureConfiguration: http.StatusInternalServerError,
	snapshot.FailureDuplicate:     http.StatusConflict,
	snapshot.FailureNotFound:      http.StatusNotFound,
	snapshot.FailureThrottled:     http.StatusTooManyRequests,
	snapshot.FailureAccessDenied:  http.StatusForbidden,
	snapshot.FailureInvalidState:  http.StatusConflict,
	snapshot.FailureQuotaExceeded: http.StatusTooManyRequests,
	snapshot.FailureUnknown:       http.StatusBadGateway,
}

// invocationEvent holds the optional fields of an EventBridge envelope. Any
// other payload (a scheduler Input string, an array, null) leaves it empty.
type invocationEvent struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// parseInvocationEvent never fails; payloads that don't fit are ignored
func parseInvocationEvent(payload json.RawMessage) invocationEvent {
	var event invocationEvent
	if len(payload) == 0 {
		return event
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return invocationEvent{}
	}
	return event
}

// handler is the Lambda entry point for scheduled invocations. The payload is
// opaque: it is accepted whatever its shape and the snapshot never depends on it.
func handler(ctx context.Context, payload json.RawMessage) (snapshotcontract.Response, error) {
	event := parseInvocationEvent(payload)

	ctx, span := tracing.StartHandlerSpan(ctx, "SnapshotTriggerHandler",
		tracing.Function("snapshot-trigger"),
		attribute.String("rds.db_instance_identifier", deps.InstanceIdentifier),
	)
	defer span.End()

	if lc, ok := lambdacontext.FromContext(ctx); ok {
		span.SetAttributes(tracing.RequestID(lc.AwsRequestID))
	}
	if event.ID != "" {
		span.SetAttributes(
			attribute.String("event.id", event.ID),
			attribute.String("event.source", event.Source),
		)
	}

	logger.InfoContext(ctx, "Starting DB snapshot",
		slog.String("db_instance_identifier", deps.InstanceIdentifier),
		slog.String("event_id", event.ID),
		slog.String("event_source", event.Source),
	)

	result, err := deps.Starter.Start(ctx)
	if err != nil {
		return handleFailure(ctx, span, err)
	}

	span.SetAttributes(attribute.String("rds.db_snapshot_identifier", result.SnapshotIdentifier))
	publishOutcome(ctx, metrics.Outcome{
		InstanceIdentifier: result.InstanceIdentifier,
		Started:            true,
	})

	logger.InfoContext(ctx, "DB snapshot started",
		slog.String("db_instance_identifier", result.InstanceIdentifier),
		slog.String("db_snapshot_identifier", result.SnapshotIdentifier),
		slog.String("status", result.Status),
		slog.String("arn", result.ARN),
	)

	return snapshotcontract.Response{
		StatusCode: result.StatusCode,
		Body:       result.Message,
	}, nil
}

// handleFailure records err and either returns it to the runtime or, when
// ErrorResponses is set, converts it into a non-200 response
func handleFailure(ctx context.Context, span trace.Span, err error) (snapshotcontract.Response, error) {
	tracing.RecordError(span, err)
	kind := snapshot.Classify(err)

	attrs := []any{
		slog.String("db_instance_identifier", deps.InstanceIdentifier),
		slog.String("failure_kind", string(kind)),
		slog.String("error", err.Error()),
	}
	var extErr *snapshot.ExternalServiceError
	if errors.As(err, &extErr) {
		attrs = append(attrs,
			slog.String("db_snapshot_identifier", extErr.SnapshotIdentifier),
			slog.String("error_code", extErr.Code),
		)
	}
	logger.ErrorContext(ctx, "Failed to start DB snapshot", attrs...)

	if kind != snapshot.FailureConfiguration {
		publishOutcome(ctx, metrics.Outcome{
			InstanceIdentifier: deps.InstanceIdentifier,
			FailureKind:        string(kind),
		})
	}

	if !deps.ErrorResponses {
		return snapshotcontract.Response{}, err
	}
	return failureResponse(err), nil
}

// failureResponse builds the translated response for err
func failureResponse(err error) snapshotcontract.Response {
	kind := snapshot.Classify(err)
	status, ok := failureStatusCodes[kind]
	if !ok {
		status = http.StatusBadGateway
	}

	body := fmt.Sprintf("Failed to start snapshot: %s", kind)
	var extErr *snapshot.ExternalServiceError
	if errors.As(err, &extErr) {
		reason := extErr.Code
		if reason == "" {
			reason = string(kind)
		}
		body = fmt.Sprintf("Failed to start snapshot %s: %s", extErr.SnapshotIdentifier, reason)
	}

	return snapshotcontract.Response{StatusCode: status, Body: body}
}

// publishOutcome publishes a metric; failures are logged and otherwise ignored
func publishOutcome(ctx context.Context, outcome metrics.Outcome) {
	if err := deps.Metrics.PublishOutcome(ctx, outcome); err != nil {
		logger.WarnContext(ctx, "Failed to publish outcome metric",
			slog.String("db_instance_identifier", outcome.InstanceIdentifier),
			slog.String("error", err.Error()),
		)
	}
}

func main() {
	ctx := context.Background()

	result, err := awsinit.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize AWS",
			slog.String("error", err.Error()),
		)
		panic(err)
	}
	defer result.Cleanup()

	paramReader := config.NewSSMParameterReader(ssm.NewFromConfig(result.Config))
	cfg, err := config.Load(ctx, os.Getenv, paramReader)
	if err != nil {
		logger.Error("FATAL: Invalid configuration",
			slog.String("error", err.Error()),
		)
		panic(err)
	}

	var publisher MetricsPublisher = metrics.NoopPublisher{}
	if cfg.MetricNamespace != "" {
		publisher = metrics.NewCloudWatchPublisher(cloudwatch.NewFromConfig(result.Config), cfg.MetricNamespace)
	}

	deps = &Dependencies{
		Starter:            snapshot.NewTrigger(cfg.Snapshot, db.NewClientFromConfig(result.Config)),
		Metrics:            publisher,
		InstanceIdentifier: cfg.Snapshot.InstanceIdentifier,
		ErrorResponses:     cfg.ErrorResponses,
	}

	result.Start(handler)
}
