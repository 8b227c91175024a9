package config

import (
	"context"
	"errors"
	"testing"

	"github.com/jarrod-lowe/rds-snapshot-trigger/internal/snapshot"
)

// mockParameterReader implements ParameterReader for testing
type mockParameterReader struct {
	value     string
	err       error
	called    bool
	requested string
}

func (m *mockParameterReader) GetParameter(ctx context.Context, name string) (string, error) {
	m.called = true
	m.requested = name
	return m.value, m.err
}

func envFrom(values map[string]string) Getenv {
	return func(key string) string {
		return values[key]
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER": "prod-db",
	}), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Snapshot.InstanceIdentifier != "prod-db" {
		t.Errorf("expected instance 'prod-db', got '%s'", cfg.Snapshot.InstanceIdentifier)
	}
	if cfg.Snapshot.NamingMode != snapshot.NamingMinute {
		t.Errorf("expected naming mode 'minute', got '%s'", cfg.Snapshot.NamingMode)
	}
	if cfg.Snapshot.Tags != nil {
		t.Errorf("expected no tags, got %v", cfg.Snapshot.Tags)
	}
	if cfg.MetricNamespace != "" {
		t.Errorf("expected empty metric namespace, got '%s'", cfg.MetricNamespace)
	}
	if cfg.ErrorResponses {
		t.Error("expected ErrorResponses to default to false")
	}
}

func TestLoad_AllSettings(t *testing.T) {
	cfg, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER": "prod-db",
		"SNAPSHOT_NAMING_MODE":   "unique",
		"SNAPSHOT_TAGS":          "CreatedBy=snapshot-trigger, Environment = prod",
		"METRIC_NAMESPACE":       "RDSSnapshots",
		"ERROR_RESPONSES":        "true",
	}), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Snapshot.NamingMode != snapshot.NamingUnique {
		t.Errorf("expected naming mode 'unique', got '%s'", cfg.Snapshot.NamingMode)
	}
	if cfg.Snapshot.Tags["CreatedBy"] != "snapshot-trigger" || cfg.Snapshot.Tags["Environment"] != "prod" {
		t.Errorf("unexpected tags: %v", cfg.Snapshot.Tags)
	}
	if cfg.MetricNamespace != "RDSSnapshots" {
		t.Errorf("expected metric namespace 'RDSSnapshots', got '%s'", cfg.MetricNamespace)
	}
	if !cfg.ErrorResponses {
		t.Error("expected ErrorResponses to be true")
	}
}

func TestLoad_MissingInstanceIdentifier(t *testing.T) {
	params := &mockParameterReader{}
	_, err := Load(context.Background(), envFrom(map[string]string{}), params)
	if err == nil {
		t.Fatal("expected error when DB_INSTANCE_IDENTIFIER is unset, got nil")
	}

	var cfgErr *snapshot.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *snapshot.ConfigurationError, got %T", err)
	}
	if cfgErr.Key != "DB_INSTANCE_IDENTIFIER" {
		t.Errorf("expected key DB_INSTANCE_IDENTIFIER, got %s", cfgErr.Key)
	}
	if params.called {
		t.Error("should not read SSM when no parameter name is configured")
	}
}

func TestLoad_InstanceIdentifierFromParameter(t *testing.T) {
	params := &mockParameterReader{value: "prod-db\n"}
	cfg, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER_PARAMETER": "/snapshots/instance",
	}), params)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if params.requested != "/snapshots/instance" {
		t.Errorf("expected parameter '/snapshots/instance', got '%s'", params.requested)
	}
	if cfg.Snapshot.InstanceIdentifier != "prod-db" {
		t.Errorf("expected instance 'prod-db', got '%s'", cfg.Snapshot.InstanceIdentifier)
	}
}

func TestLoad_EnvironmentWinsOverParameter(t *testing.T) {
	params := &mockParameterReader{value: "other-db"}
	cfg, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER":           "prod-db",
		"DB_INSTANCE_IDENTIFIER_PARAMETER": "/snapshots/instance",
	}), params)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Snapshot.InstanceIdentifier != "prod-db" {
		t.Errorf("expected instance 'prod-db', got '%s'", cfg.Snapshot.InstanceIdentifier)
	}
	if params.called {
		t.Error("should not read SSM when DB_INSTANCE_IDENTIFIER is set")
	}
}

func TestLoad_ParameterReadFailure(t *testing.T) {
	ssmErr := errors.New("SSM error")
	params := &mockParameterReader{err: ssmErr}
	_, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER_PARAMETER": "/snapshots/instance",
	}), params)
	if !errors.Is(err, ssmErr) {
		t.Fatalf("expected wrapped SSM error, got %v", err)
	}
}

func TestLoad_EmptyParameterValue(t *testing.T) {
	params := &mockParameterReader{value: "  "}
	_, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER_PARAMETER": "/snapshots/instance",
	}), params)

	var cfgErr *snapshot.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *snapshot.ConfigurationError, got %v", err)
	}
}

func TestLoad_ParameterWithoutReader(t *testing.T) {
	_, err := Load(context.Background(), envFrom(map[string]string{
		"DB_INSTANCE_IDENTIFIER_PARAMETER": "/snapshots/instance",
	}), nil)

	var cfgErr *snapshot.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *snapshot.ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "DB_INSTANCE_IDENTIFIER_PARAMETER" {
		t.Errorf("expected key DB_INSTANCE_IDENTIFIER_PARAMETER, got %s", cfgErr.Key)
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{
			name: "naming mode",
			env:  map[string]string{"DB_INSTANCE_IDENTIFIER": "prod-db", "SNAPSHOT_NAMING_MODE": "hourly"},
			key:  "SNAPSHOT_NAMING_MODE",
		},
		{
			name: "tags",
			env:  map[string]string{"DB_INSTANCE_IDENTIFIER": "prod-db", "SNAPSHOT_TAGS": "CreatedBy"},
			key:  "SNAPSHOT_TAGS",
		},
		{
			name: "error responses",
			env:  map[string]string{"DB_INSTANCE_IDENTIFIER": "prod-db", "ERROR_RESPONSES": "sometimes"},
			key:  "ERROR_RESPONSES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), envFrom(tt.env), nil)
			var cfgErr *snapshot.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *snapshot.ConfigurationError, got %v", err)
			}
			if cfgErr.Key != tt.key {
				t.Errorf("expected key %s, got %s", tt.key, cfgErr.Key)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	tags, err := ParseTags("A=1,,B=,C = three ")
	if err != nil {
		t.Fatalf("ParseTags returned error: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d: %v", len(tags), tags)
	}
	if tags["A"] != "1" || tags["B"] != "" || tags["C"] != "three" {
		t.Errorf("unexpected tags: %v", tags)
	}

	if _, err := ParseTags("=value"); err == nil {
		t.Error("expected error for empty key")
	}

	empty, err := ParseTags("   ")
	if err != nil || empty != nil {
		t.Errorf("expected nil tags and no error for blank input, got %v, %v", empty, err)
	}
}
