// Package logs fetches application log events for a deployed service.
package logs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// Client defines the CloudWatch Logs operations used by the fetcher.
type Client interface {
	FilterLogEvents(
		ctx context.Context,
		params *cloudwatchlogs.FilterLogEventsInput,
		optFns ...func(*cloudwatchlogs.Options),
	) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// Event is one application log line.
type Event struct {
	Timestamp time.Time
	Message   string
	Stream    string
}

// Fetcher reads application logs for App Runner services.
type Fetcher struct {
	client Client
}

// NewFetcher creates a Fetcher with a real CloudWatch Logs client.
func NewFetcher(ctx context.Context, region string) (*Fetcher, error) {
	var awsOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Fetcher{client: cloudwatchlogs.NewFromConfig(awsCfg)}, nil
}

// NewFetcherWithClient creates a Fetcher with a custom client (for testing).
func NewFetcherWithClient(client Client) *Fetcher {
	return &Fetcher{client: client}
}

// GroupName derives the application log group from the service name and its
// platform identifier. App Runner names groups after the short service ID,
// the last path segment of the service ARN.
func GroupName(serviceName, serviceID string) string {
	shortID := serviceID
	if idx := strings.LastIndex(serviceID, "/"); idx >= 0 {
		shortID = serviceID[idx+1:]
	}
	return fmt.Sprintf("/aws/apprunner/%s/%s/application", serviceName, shortID)
}

// Fetch returns application events from the group since the given time, in
// event order. Pagination is followed to exhaustion.
func (f *Fetcher) Fetch(ctx context.Context, group string, since time.Time) ([]Event, error) {
	var events []Event
	var nextToken *string
	for {
		out, err := f.client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(group),
			StartTime:    aws.Int64(since.UnixMilli()),
			NextToken:    nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("filter log events: %w", err)
		}

		for _, ev := range out.Events {
			events = append(events, Event{
				Timestamp: time.UnixMilli(aws.ToInt64(ev.Timestamp)),
				Message:   strings.TrimRight(aws.ToString(ev.Message), "\n"),
				Stream:    aws.ToString(ev.LogStreamName),
			})
		}

		if out.NextToken == nil {
			return events, nil
		}
		nextToken = out.NextToken
	}
}
