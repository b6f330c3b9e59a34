package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSTS struct {
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.GetCallerIdentityFunc(ctx, params, optFns...)
}

func TestResolveReturnsCaller(t *testing.T) {
	client := &mockSTS{
		GetCallerIdentityFunc: func(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{
				Account: aws.String("123456789012"),
				Arn:     aws.String("arn:aws:iam::123456789012:user/deployer"),
				UserId:  aws.String("AIDAEXAMPLE"),
			}, nil
		},
	}

	caller, err := NewResolverWithClient(client).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789012", caller.Account)
	assert.Equal(t, "arn:aws:iam::123456789012:user/deployer", caller.ARN)
}

func TestResolveWrapsCredentialErrors(t *testing.T) {
	boom := errors.New("ExpiredToken")
	client := &mockSTS{
		GetCallerIdentityFunc: func(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, boom
		},
	}

	_, err := NewResolverWithClient(client).Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
