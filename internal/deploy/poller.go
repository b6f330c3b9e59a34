package deploy

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/shipway/shipway/internal/errors"
)

// Poller watches a service after a mutating call until it reaches a target
// status. Polling is fixed-interval, not exponential: convergence windows on
// these platforms are minutes long, bursty polling buys nothing, and a fixed
// interval keeps tests deterministic.
type Poller struct {
	api    ServiceAPI
	logger *slog.Logger
}

// NewPoller creates a Poller over the platform's service API.
func NewPoller(api ServiceAPI, log *slog.Logger) *Poller {
	return &Poller{api: api, logger: log}
}

// AwaitState polls the service status up to maxAttempts times at the given
// interval. It terminates early with Converged on a match or Failed when the
// platform reports a terminal failure status. Exhausting maxAttempts yields
// TimedOut with the last observed status; the caller decides whether that is
// fatal. Context cancellation between attempts ends polling with an aborted
// TimedOut outcome rather than a silent exit.
func (p *Poller) AwaitState(
	ctx context.Context,
	serviceID, targetStatus string,
	maxAttempts int,
	interval time.Duration,
) *ConvergenceOutcome {
	outcome := &ConvergenceOutcome{Result: TimedOut}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt

		state, err := p.api.DescribeService(ctx, serviceID)
		switch {
		case err == nil:
			outcome.LastStatus = state.Status
			if state.Status == targetStatus {
				outcome.Result = Converged
				return outcome
			}
			if state.Failed {
				outcome.Result = Failed
				return outcome
			}
		case apperrors.IsNotFound(err):
			// The service vanished mid-poll; nothing further to wait for.
			outcome.LastStatus = "NOT_FOUND"
			outcome.Result = Failed
			return outcome
		default:
			// Transient describe failures do not abort convergence; the
			// attempt budget bounds how long we keep trying.
			p.logger.Debug("describe failed during convergence poll",
				"service", serviceID, "attempt", attempt, "error", err)
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			outcome.Aborted = true
			return outcome
		case <-time.After(interval):
		}
	}

	return outcome
}

// Err converts a non-converged outcome into the corresponding error, for
// callers that treat anything short of convergence as fatal.
func (o *ConvergenceOutcome) Err(targetStatus string) error {
	if o.Result == Converged {
		return nil
	}
	return apperrors.NewConvergenceTimeout(targetStatus, o.LastStatus, o.Attempts)
}
