// Package metrics publishes snapshot trigger outcomes to CloudWatch.
package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names
const (
	MetricSnapshotStarted = "SnapshotStarted"
	MetricSnapshotFailed  = "SnapshotFailed"
)

// Dimension names
const (
	DimensionInstance    = "DBInstanceIdentifier"
	DimensionFailureKind = "FailureKind"
)

// Outcome describes one invocation's result
type Outcome struct {
	InstanceIdentifier string
	Started            bool
	FailureKind        string
}

// CloudWatchClient defines the CloudWatch operations used here
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPublisher publishes outcomes using CloudWatch
type CloudWatchPublisher struct {
	client    CloudWatchClient
	namespace string
}

// NewCloudWatchPublisher creates a new CloudWatchPublisher
func NewCloudWatchPublisher(client CloudWatchClient, namespace string) *CloudWatchPublisher {
	return &CloudWatchPublisher{
		client:    client,
		namespace: namespace,
	}
}

// PublishOutcome publishes a count of 1 for the outcome
func (p *CloudWatchPublisher) PublishOutcome(ctx context.Context, outcome Outcome) error {
	name := MetricSnapshotStarted
	dimensions := []types.Dimension{
		{Name: aws.String(DimensionInstance), Value: aws.String(outcome.InstanceIdentifier)},
	}
	if !outcome.Started {
		name = MetricSnapshotFailed
		if outcome.FailureKind != "" {
			dimensions = append(dimensions, types.Dimension{
				Name:  aws.String(DimensionFailureKind),
				Value: aws.String(outcome.FailureKind),
			})
		}
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Dimensions: dimensions,
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
			},
		},
	})
	return err
}

// NoopPublisher discards outcomes. Used when no namespace is configured.
type NoopPublisher struct{}

// PublishOutcome does nothing
func (NoopPublisher) PublishOutcome(ctx context.Context, outcome Outcome) error {
	return nil
}
