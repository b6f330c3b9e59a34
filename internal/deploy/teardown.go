package deploy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shipway/shipway/internal/constants"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// TeardownState is a state of the destroy state machine.
type TeardownState string

const (
	// StatePendingConfirmation is the initial state.
	StatePendingConfirmation TeardownState = "PENDING_CONFIRMATION"
	// StateConfirmed means the operator confirmed the destroy.
	StateConfirmed TeardownState = "CONFIRMED"
	// StateDeleting means the delete call was issued.
	StateDeleting TeardownState = "DELETING"
	// StateAbsent is the terminal success state: the service is gone (or
	// never existed; destroying a nonexistent resource is success).
	StateAbsent TeardownState = "ABSENT"
	// StateCancelled is the terminal state for a declined confirmation.
	// No side effects have occurred.
	StateCancelled TeardownState = "CANCELLED"
	// StateTimedOut means deletion was issued but the service was still
	// present when the wall-clock budget ran out. Distinct from ABSENT so a
	// stuck deletion is never reported as success.
	StateTimedOut TeardownState = "TIMED_OUT"
)

// Confirmation gates a destructive operation. Either Force is set (the
// non-interactive override) or the exact literal token is read from In.
type Confirmation struct {
	Force bool
	In    io.Reader
	// Prompt receives the confirmation prompt; defaults to io.Discard.
	Prompt io.Writer
}

// TeardownOutcome reports how a destroy ended.
type TeardownOutcome struct {
	State TeardownState
	// Deleted is set when a delete call was actually issued.
	Deleted bool
	// LastStatus is the last observed service status (TIMED_OUT only).
	LastStatus string
}

// Coordinator drives the guarded destroy path: confirm, locate, delete, and
// poll until the platform reports the service gone.
type Coordinator struct {
	api      ServiceAPI
	interval time.Duration
	budget   time.Duration
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator. interval is the fixed deletion poll
// interval; budget bounds the total wall-clock wait for disappearance.
func NewCoordinator(api ServiceAPI, interval, budget time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{api: api, interval: interval, budget: budget, logger: log}
}

// Destroy tears down the named service. Any confirmation input other than
// the exact literal token (case-sensitive) cancels with zero side effects.
// Destroying an absent service is success, not an error.
func (c *Coordinator) Destroy(ctx context.Context, name string, confirm Confirmation) (*TeardownOutcome, error) {
	outcome := &TeardownOutcome{State: StatePendingConfirmation}

	confirmed, err := c.confirm(confirm)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		outcome.State = StateCancelled
		c.logger.Info("teardown cancelled, no changes made", "service", name)
		return outcome, nil
	}
	outcome.State = StateConfirmed

	id, err := c.api.FindService(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to locate service %s: %w", name, err)
	}
	if id == "" {
		outcome.State = StateAbsent
		c.logger.Info("service already absent", "service", name)
		return outcome, nil
	}

	if err = c.api.DeleteService(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete service %s: %w", name, err)
	}
	outcome.State = StateDeleting
	outcome.Deleted = true
	c.logger.Info("delete issued, waiting for service to disappear", "service", name, "id", id)

	return c.awaitAbsent(ctx, id, outcome)
}

// confirm resolves the confirmation gate. Force short-circuits; otherwise the
// exact token is required from the interactive reader.
func (c *Coordinator) confirm(confirm Confirmation) (bool, error) {
	if confirm.Force {
		return true, nil
	}
	if confirm.In == nil {
		return false, apperrors.NewConfiguration(
			"interactive confirmation required: no input available and no override flag set", nil)
	}

	prompt := confirm.Prompt
	if prompt == nil {
		prompt = io.Discard
	}
	fmt.Fprintf(prompt, "Type %s to confirm: ", constants.TeardownToken)

	line, err := bufio.NewReader(confirm.In).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	return strings.TrimRight(line, "\r\n") == constants.TeardownToken, nil
}

// awaitAbsent polls describe until it fails with not-found. The wait is
// bounded so a stuck deletion surfaces as TIMED_OUT instead of hanging
// forever.
func (c *Coordinator) awaitAbsent(ctx context.Context, id string, outcome *TeardownOutcome) (*TeardownOutcome, error) {
	deadline := time.Now().Add(c.budget)

	for {
		state, err := c.api.DescribeService(ctx, id)
		switch {
		case apperrors.IsNotFound(err):
			outcome.State = StateAbsent
			return outcome, nil
		case err == nil:
			outcome.LastStatus = state.Status
		default:
			c.logger.Debug("describe failed during deletion poll", "id", id, "error", err)
		}

		if time.Now().After(deadline) {
			outcome.State = StateTimedOut
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			outcome.State = StateTimedOut
			return outcome, ctx.Err()
		case <-time.After(c.interval):
		}
	}
}
