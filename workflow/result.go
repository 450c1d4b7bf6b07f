package workflow

import "time"

// Source tags which path delivered a settlement claim. It only drives the
// ownership check and audit logging; the PAID transition itself is identical
// for every source.
type Source string

const (
	SourceWebhook  Source = "webhook"
	SourcePoll     Source = "poll"
	SourceRedirect Source = "redirect-verify"
)

// Event is a claimed successful payment from any source. It is never
// persisted; it exists only as the input contract to Reconcile.
type Event struct {
	// OrderID when the caller already knows the order (webhook metadata).
	OrderID string
	// Reference is the provider transaction reference (redirect/poll paths).
	Reference string
	// AmountMinor is the claimed settlement in kobo. Zero means "unknown,
	// ask the gateway" (poll paths carry only a reference).
	AmountMinor int64
	PaidAt      *time.Time
	Source      Source
	// CallerUserID is the authenticated identity on user-initiated paths.
	// Zero on the webhook path, which is trusted via signature instead.
	CallerUserID int
}

type Reason string

const (
	ReasonNone Reason = ""
	// ReasonAlreadyPaid is not an error: the idempotent short-circuit.
	ReasonAlreadyPaid        Reason = "AlreadyPaid"
	ReasonOrderNotFound      Reason = "OrderNotFound"
	ReasonUnauthorized       Reason = "Unauthorized"
	ReasonAmountMismatch     Reason = "AmountMismatch"
	ReasonNotEligible        Reason = "NotEligible"
	ReasonPaymentPending     Reason = "PaymentPending"
	ReasonGatewayUnavailable Reason = "GatewayUnavailable"
	ReasonStoreFailure       Reason = "StoreFailure"
	ReasonRateLimited        Reason = "RateLimited"
)

type Result struct {
	Success bool
	Reason  Reason
	OrderID string
	Message string
}

// Retryable reports whether the same caller may sensibly try again: the
// settlement is still in flight or an external dependency hiccuped.
// Mismatches, missing orders and authorization failures never retry.
func (r Result) Retryable() bool {
	switch r.Reason {
	case ReasonPaymentPending, ReasonGatewayUnavailable, ReasonStoreFailure:
		return true
	}
	return false
}

func failure(reason Reason, message string) Result {
	return Result{Success: false, Reason: reason, Message: message}
}
