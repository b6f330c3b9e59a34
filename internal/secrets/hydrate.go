package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Client defines the interface for SSM operations used by the Hydrator.
// This interface makes the code easier to test by allowing mock implementations.
type Client interface {
	GetParametersByPath(
		ctx context.Context,
		params *ssm.GetParametersByPathInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParametersByPathOutput, error)
}

// ClientAdapter wraps the AWS SDK SSM client to implement the Client interface.
type ClientAdapter struct {
	client *ssm.Client
}

// NewClientAdapter creates a new adapter wrapping the AWS SDK SSM client.
func NewClientAdapter(client *ssm.Client) *ClientAdapter {
	return &ClientAdapter{client: client}
}

// GetParametersByPath wraps the AWS SDK GetParametersByPath operation.
func (a *ClientAdapter) GetParametersByPath(
	ctx context.Context,
	params *ssm.GetParametersByPathInput,
	optFns ...func(*ssm.Options),
) (*ssm.GetParametersByPathOutput, error) {
	result, err := a.client.GetParametersByPath(ctx, params, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters by path: %w", err)
	}
	return result, nil
}

// Hydrator fills environment variables from a parameter store path.
// A variable already defined locally always wins; only missing allow-listed
// variables are hydrated.
type Hydrator struct {
	client Client
	path   string
	logger *slog.Logger
}

// NewHydrator creates a Hydrator reading SecureString parameters under path,
// e.g. "/rag-api/prod".
func NewHydrator(client Client, path string, log *slog.Logger) *Hydrator {
	return &Hydrator{client: client, path: path, logger: log}
}

// Hydrate fetches the parameters under the configured path and returns values
// for the allow-listed keys that lookup cannot resolve locally. The parameter
// base name (last path segment) is matched against the variable name.
func (h *Hydrator) Hydrate(
	ctx context.Context,
	allowList []string,
	lookup func(string) (string, bool),
) (map[string]string, error) {
	if h.path == "" || len(allowList) == 0 {
		return map[string]string{}, nil
	}

	params, err := h.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	hydrated := make(map[string]string)
	for _, key := range allowList {
		if _, ok := lookup(key); ok {
			continue // local value wins
		}
		if value, ok := params[key]; ok {
			hydrated[key] = value
			h.logger.Debug("hydrated variable from parameter store", "key", key)
		}
	}

	return hydrated, nil
}

// fetchAll pages through all parameters under the path, keyed by base name.
func (h *Hydrator) fetchAll(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string)

	var nextToken *string
	for {
		out, err := h.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(h.path),
			Recursive:      aws.Bool(false),
			WithDecryption: aws.Bool(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters under %s: %w", h.path, err)
		}

		for _, p := range out.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				name = name[idx+1:]
			}
			values[name] = *p.Value
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return values, nil
}
