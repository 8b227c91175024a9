// Package config loads the snapshot trigger's configuration once at cold start.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/snapshot"
)

// Environment variables
const (
	EnvInstanceIdentifier          = snapshot.EnvInstanceIdentifier
	EnvInstanceIdentifierParameter = "DB_INSTANCE_IDENTIFIER_PARAMETER"
	EnvNamingMode                  = snapshot.EnvNamingMode
	EnvSnapshotTags                = "SNAPSHOT_TAGS"
	EnvMetricNamespace             = "METRIC_NAMESPACE"
	EnvErrorResponses              = "ERROR_RESPONSES"
)

// Getenv looks up an environment variable (os.Getenv in production)
type Getenv func(key string) string

// ParameterReader reads parameters from SSM Parameter Store
type ParameterReader interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Config holds application configuration
type Config struct {
	Snapshot        snapshot.Config
	MetricNamespace string
	ErrorResponses  bool
}

// Load builds Config from the environment. DB_INSTANCE_IDENTIFIER wins over
// DB_INSTANCE_IDENTIFIER_PARAMETER; params is only used for the latter and
// may be nil otherwise.
func Load(ctx context.Context, getenv Getenv, params ParameterReader) (Config, error) {
	instance, err := resolveInstanceIdentifier(ctx, getenv, params)
	if err != nil {
		return Config{}, err
	}

	mode, err := snapshot.ParseNamingMode(getenv(EnvNamingMode))
	if err != nil {
		return Config{}, err
	}

	tags, err := ParseTags(getenv(EnvSnapshotTags))
	if err != nil {
		return Config{}, err
	}

	errorResponses := false
	if raw := getenv(EnvErrorResponses); raw != "" {
		errorResponses, err = strconv.ParseBool(raw)
		if err != nil {
			return Config{}, &snapshot.ConfigurationError{
				Key:    EnvErrorResponses,
				Reason: fmt.Sprintf("not a boolean: %q", raw),
			}
		}
	}

	return Config{
		Snapshot: snapshot.Config{
			InstanceIdentifier: instance,
			NamingMode:         mode,
			Tags:               tags,
		},
		MetricNamespace: getenv(EnvMetricNamespace),
		ErrorResponses:  errorResponses,
	}, nil
}

func resolveInstanceIdentifier(ctx context.Context, getenv Getenv, params ParameterReader) (string, error) {
	if instance := getenv(EnvInstanceIdentifier); instance != "" {
		return instance, nil
	}

	paramName := getenv(EnvInstanceIdentifierParameter)
	if paramName == "" {
		return "", &snapshot.ConfigurationError{Key: EnvInstanceIdentifier}
	}
	if params == nil {
		return "", &snapshot.ConfigurationError{
			Key:    EnvInstanceIdentifierParameter,
			Reason: "no parameter reader available",
		}
	}

	value, err := params.GetParameter(ctx, paramName)
	if err != nil {
		return "", fmt.Errorf("failed to read SSM parameter %s: %w", paramName, err)
	}

	instance := strings.TrimSpace(value)
	if instance == "" {
		return "", &snapshot.ConfigurationError{
			Key:    EnvInstanceIdentifierParameter,
			Reason: fmt.Sprintf("parameter %s is empty", paramName),
		}
	}
	return instance, nil
}

// ParseTags parses "Key=Value,Key2=Value2". Whitespace around keys and values
// is trimmed; values may be empty but keys may not.
func ParseTags(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	tags := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &snapshot.ConfigurationError{
				Key:    EnvSnapshotTags,
				Reason: fmt.Sprintf("expected Key=Value, got %q", pair),
			}
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}
