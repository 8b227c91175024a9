package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMClient defines the SSM operations needed to resolve the instance identifier
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMParameterReader resolves DB_INSTANCE_IDENTIFIER_PARAMETER from Parameter Store
type SSMParameterReader struct {
	client SSMClient
}

// NewSSMParameterReader creates a new SSMParameterReader
func NewSSMParameterReader(client SSMClient) *SSMParameterReader {
	return &SSMParameterReader{client: client}
}

// GetParameter returns the value stored under name. SecureString values are
// decrypted so the instance identifier can be kept alongside other secrets.
func (r *SSMParameterReader) GetParameter(ctx context.Context, name string) (string, error) {
	result, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get instance identifier parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("instance identifier parameter %s has no value", name)
	}

	return *result.Parameter.Value, nil
}
