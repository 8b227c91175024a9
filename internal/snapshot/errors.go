package snapshot

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// FailureKind groups the ways an invocation can fail
type FailureKind string

const (
	FailureConfiguration FailureKind = "configuration"
	FailureDuplicate     FailureKind = "duplicate"
	FailureNotFound      FailureKind = "not_found"
	FailureThrottled     FailureKind = "throttled"
	FailureAccessDenied  FailureKind = "access_denied"
	FailureInvalidState  FailureKind = "invalid_state"
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	FailureUnknown       FailureKind = "unknown"
)

// API error codes returned by the database service
var failureKindsByCode = map[string]FailureKind{
	"DBSnapshotAlreadyExists":     FailureDuplicate,
	"DBInstanceNotFound":          FailureNotFound,
	"InvalidDBInstanceState":      FailureInvalidState,
	"SnapshotQuotaExceeded":       FailureQuotaExceeded,
	"Throttling":                  FailureThrottled,
	"ThrottlingException":         FailureThrottled,
	"RequestLimitExceeded":        FailureThrottled,
	"TooManyRequestsException":    FailureThrottled,
	"AccessDenied":                FailureAccessDenied,
	"AccessDeniedException":       FailureAccessDenied,
	"UnauthorizedOperation":       FailureAccessDenied,
	"KMSKeyNotAccessibleFault":    FailureAccessDenied,
	"InvalidClientTokenId":        FailureAccessDenied,
	"UnrecognizedClientException": FailureAccessDenied,
	"ExpiredTokenException":       FailureAccessDenied,
}

// ConfigurationError reports missing or invalid required configuration
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required configuration: %s", e.Key)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// ExternalServiceError wraps a rejected create-snapshot call
type ExternalServiceError struct {
	InstanceIdentifier string
	SnapshotIdentifier string
	Code               string
	Kind               FailureKind
	Err                error
}

func newExternalServiceError(instance, snapshotID string, err error) *ExternalServiceError {
	code := APIErrorCode(err)
	return &ExternalServiceError{
		InstanceIdentifier: instance,
		SnapshotIdentifier: snapshotID,
		Code:               code,
		Kind:               kindForCode(code),
		Err:                err,
	}
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("failed to create snapshot %s of %s: %v", e.SnapshotIdentifier, e.InstanceIdentifier, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// APIErrorCode returns the service error code carried by err, or "" if err
// is not an API error
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Classify maps any error returned by Start to a FailureKind
func Classify(err error) FailureKind {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return FailureConfiguration
	}
	var extErr *ExternalServiceError
	if errors.As(err, &extErr) {
		return extErr.Kind
	}
	return kindForCode(APIErrorCode(err))
}

// IsDuplicate reports whether the snapshot name was already taken
func IsDuplicate(err error) bool {
	return Classify(err) == FailureDuplicate
}

// IsNotFound reports whether the source instance does not exist
func IsNotFound(err error) bool {
	return Classify(err) == FailureNotFound
}

// IsThrottled reports whether the service throttled the request
func IsThrottled(err error) bool {
	return Classify(err) == FailureThrottled
}

// IsAccessDenied reports whether the caller lacked permission
func IsAccessDenied(err error) bool {
	return Classify(err) == FailureAccessDenied
}

func kindForCode(code string) FailureKind {
	if kind, ok := failureKindsByCode[code]; ok {
		return kind
	}
	return FailureUnknown
}
