package workflow

import (
	"context"
	"time"
)

// PollState is the client-observable verification state after the user is
// redirected back from the hosted payment page.
type PollState string

const (
	PollStateVerifying PollState = "VERIFYING"
	PollStateSuccess   PollState = "SUCCESS"
	PollStateError     PollState = "ERROR"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 5
)

type PollOutcome struct {
	State    PollState
	Message  string
	OrderID  string
	Attempts int
}

// Poller drives bounded re-verification of a transaction reference against
// the reconciliation engine. One poller serves one redirect-back flow; it
// holds no state shared between sessions beyond what the engine serializes.
type Poller struct {
	Engine      *Engine
	Interval    time.Duration
	MaxAttempts int
}

func NewPoller(engine *Engine) *Poller {
	return &Poller{
		Engine:      engine,
		Interval:    defaultPollInterval,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Run polls until the payment confirms, a terminal failure occurs, attempts
// run out, or ctx is cancelled. Cancellation between attempts releases the
// timer immediately; no callbacks fire after the consumer is gone.
//
// Exhausting attempts is reported without claiming the payment failed: the
// webhook may still settle the order out-of-band.
func (p *Poller) Run(ctx context.Context, userID int, reference string) PollOutcome {
	if reference == "" {
		return PollOutcome{State: PollStateError, Message: "No transaction reference found."}
	}

	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var last Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = p.Engine.Reconcile(ctx, Event{
			Reference:    reference,
			Source:       SourcePoll,
			CallerUserID: userID,
		})

		if last.Success {
			return PollOutcome{
				State:    PollStateSuccess,
				Message:  "Payment successful! Redirecting to your order...",
				OrderID:  last.OrderID,
				Attempts: attempt,
			}
		}

		if !last.Retryable() {
			return PollOutcome{
				State:    PollStateError,
				Message:  last.Message,
				Attempts: attempt,
			}
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollOutcome{
				State:    PollStateError,
				Message:  "Verification cancelled.",
				Attempts: attempt,
			}
		case <-timer.C:
		}
	}

	return PollOutcome{
		State:    PollStateError,
		Message:  "Verification timed out. If your payment was successful, it will be updated shortly.",
		Attempts: maxAttempts,
	}
}
