// Package identity resolves the caller's cloud identity before any mutating
// call, so a deploy against the wrong account fails at the first step with a
// readable message instead of a downstream permission error.
package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Client defines the STS operations used for the preflight check.
type Client interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// Caller is the resolved identity of the invoking credentials.
type Caller struct {
	Account string
	ARN     string
	UserID  string
}

// Resolver performs the identity preflight.
type Resolver struct {
	client Client
}

// NewResolver creates a Resolver with a real STS client.
func NewResolver(ctx context.Context, region string) (*Resolver, error) {
	var awsOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Resolver{client: sts.NewFromConfig(awsCfg)}, nil
}

// NewResolverWithClient creates a Resolver with a custom client (for testing).
func NewResolverWithClient(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the caller identity, or an error when the credentials are
// missing or expired.
func (r *Resolver) Resolve(ctx context.Context) (*Caller, error) {
	out, err := r.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("resolve caller identity: %w", err)
	}

	return &Caller{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
