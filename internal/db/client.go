package db

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/snapshot"
)

// RDSClient defines the interface for RDS operations
type RDSClient interface {
	CreateDBSnapshot(ctx context.Context, params *rds.CreateDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.CreateDBSnapshotOutput, error)
}

// Client wraps RDS snapshot operations
type Client struct {
	rds RDSClient
}

// NewClient creates a Client around an existing RDS API
func NewClient(api RDSClient) *Client {
	return &Client{rds: api}
}

// NewClientFromConfig creates a Client from an AWS config. Tracing
// middleware already appended to cfg is inherited.
func NewClientFromConfig(cfg aws.Config) *Client {
	return NewClient(rds.NewFromConfig(cfg))
}

// CreateSnapshot starts a manual DB snapshot. Service errors are returned
// unchanged so callers can inspect the typed fault.
func (c *Client) CreateSnapshot(ctx context.Context, req snapshot.CreateRequest) (*snapshot.Created, error) {
	output, err := c.rds.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
		DBInstanceIdentifier: aws.String(req.InstanceIdentifier),
		DBSnapshotIdentifier: aws.String(req.SnapshotIdentifier),
		Tags:                 buildTags(req.Tags),
	})
	if err != nil {
		return nil, err
	}

	created := &snapshot.Created{SnapshotIdentifier: req.SnapshotIdentifier}
	if output != nil && output.DBSnapshot != nil {
		s := output.DBSnapshot
		if s.DBSnapshotIdentifier != nil {
			created.SnapshotIdentifier = *s.DBSnapshotIdentifier
		}
		created.Status = aws.ToString(s.Status)
		created.ARN = aws.ToString(s.DBSnapshotArn)
	}

	return created, nil
}

// buildTags converts tags to RDS tags sorted by key. Returns nil when empty
// so the request carries no Tags member.
func buildTags(tags map[string]string) []types.Tag {
	if len(tags) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		result = append(result, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return result
}
