// Package snapshot starts a manual database snapshot for a single instance.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// EnvInstanceIdentifier names the configuration key holding the source instance
const EnvInstanceIdentifier = "DB_INSTANCE_IDENTIFIER"

// EnvNamingMode names the configuration key selecting the NamingMode
const EnvNamingMode = "SNAPSHOT_NAMING_MODE"

// StatusStarted is the status code reported when the snapshot was started
const StatusStarted = 200

// Go layout for YYYY-MM-DD-HH-mm
const timestampLayout = "2006-01-02-15-04"

// NamingMode selects how the timestamp part of a snapshot identifier is built
type NamingMode string

const (
	// NamingMinute is {instance}-snapshot-YYYY-MM-DD-HH-mm. Two invocations in
	// the same minute collide and the second is rejected by the service.
	NamingMinute NamingMode = "minute"
	// NamingSecond appends -ss to the minute form
	NamingSecond NamingMode = "second"
	// NamingUnique appends a short random suffix to the minute form
	NamingUnique NamingMode = "unique"
)

// ParseNamingMode parses a configured naming mode. Empty means NamingMinute.
func ParseNamingMode(value string) (NamingMode, error) {
	switch NamingMode(value) {
	case "", NamingMinute:
		return NamingMinute, nil
	case NamingSecond, NamingUnique:
		return NamingMode(value), nil
	default:
		return "", &ConfigurationError{
			Key:    EnvNamingMode,
			Reason: fmt.Sprintf("unknown naming mode %q", value),
		}
	}
}

// Config holds everything a Trigger needs for one instance
type Config struct {
	InstanceIdentifier string
	NamingMode         NamingMode
	Tags               map[string]string
}

// CreateRequest is the single outbound request made per invocation
type CreateRequest struct {
	InstanceIdentifier string
	SnapshotIdentifier string
	Tags               map[string]string
}

// Created describes the snapshot as reported back by the service
type Created struct {
	SnapshotIdentifier string
	Status             string
	ARN                string
}

// SnapshotCreator starts a snapshot on the managed database service
type SnapshotCreator interface {
	CreateSnapshot(ctx context.Context, req CreateRequest) (*Created, error)
}

// Result is the outcome of a successful Start
type Result struct {
	InstanceIdentifier string
	SnapshotIdentifier string
	Status             string
	ARN                string
	StatusCode         int
	Message            string
}

// Trigger builds the snapshot name and makes the create call
type Trigger struct {
	cfg     Config
	creator SnapshotCreator
	clock   clockwork.Clock
	suffix  func() string
}

// Option configures a Trigger
type Option func(*Trigger)

// WithClock overrides the wall clock used for the snapshot timestamp
func WithClock(clock clockwork.Clock) Option {
	return func(t *Trigger) {
		t.clock = clock
	}
}

// WithSuffixFunc overrides the suffix source used by NamingUnique
func WithSuffixFunc(fn func() string) Option {
	return func(t *Trigger) {
		t.suffix = fn
	}
}

// NewTrigger creates a Trigger for cfg
func NewTrigger(cfg Config, creator SnapshotCreator, opts ...Option) *Trigger {
	t := &Trigger{
		cfg:     cfg,
		creator: creator,
		clock:   clockwork.NewRealClock(),
		suffix:  randomSuffix,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start creates one snapshot of the configured instance. It never retries.
// A *ConfigurationError is returned before any call is made; a failed call
// is returned as *ExternalServiceError.
func (t *Trigger) Start(ctx context.Context) (*Result, error) {
	instance := t.cfg.InstanceIdentifier
	if instance == "" {
		return nil, &ConfigurationError{Key: EnvInstanceIdentifier}
	}

	snapshotID := BuildIdentifier(instance, t.clock.Now(), t.cfg.NamingMode, t.suffix)

	created, err := t.creator.CreateSnapshot(ctx, CreateRequest{
		InstanceIdentifier: instance,
		SnapshotIdentifier: snapshotID,
		Tags:               t.cfg.Tags,
	})
	if err != nil {
		return nil, newExternalServiceError(instance, snapshotID, err)
	}

	result := &Result{
		InstanceIdentifier: instance,
		SnapshotIdentifier: snapshotID,
		StatusCode:         StatusStarted,
		Message:            fmt.Sprintf("Started snapshot %s", snapshotID),
	}
	if created != nil {
		result.Status = created.Status
		result.ARN = created.ARN
	}
	return result, nil
}

// SnapshotIdentifier returns {instance}-snapshot-YYYY-MM-DD-HH-mm for at, in UTC
func SnapshotIdentifier(instance string, at time.Time) string {
	return fmt.Sprintf("%s-snapshot-%s", instance, at.UTC().Format(timestampLayout))
}

// BuildIdentifier returns the snapshot identifier for mode. suffix is only
// consulted for NamingUnique.
func BuildIdentifier(instance string, at time.Time, mode NamingMode, suffix func() string) string {
	base := SnapshotIdentifier(instance, at)
	switch mode {
	case NamingSecond:
		return fmt.Sprintf("%s-%02d", base, at.UTC().Second())
	case NamingUnique:
		return fmt.Sprintf("%s-%s", base, suffix())
	default:
		return base
	}
}

// randomSuffix is the first 8 hex characters of a v4 UUID
func randomSuffix() string {
	return uuid.NewString()[:8]
}
