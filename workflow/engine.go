package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/notify"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/paystack"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/sirupsen/logrus"
)

// Limiter is the rate-limiting capability injected into payment initiation.
// Backed by redis in production so counters survive across instances.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Engine is the single authority for the UNPAID -> PAID transition. The
// webhook ingress, the verification poller and the redirect flow all funnel
// through Reconcile; none of them mutates payment state on their own.
type Engine struct {
	Ledger   models.Ledger
	Gateway  paystack.Gateway
	Notifier notify.Notifier
	Limiter  Limiter
	Logger   *logrus.Logger
}

// Reconcile decides whether a claimed settlement marks its order PAID.
// Outcomes are normalized to the Reason taxonomy; transport errors never
// leak to callers. Safe to invoke any number of times, from any number of
// sources, concurrently: at most one invocation performs the transition and
// sends the confirmation email.
func (e *Engine) Reconcile(ctx context.Context, ev Event) Result {
	order, verified, res := e.resolveOrder(ctx, ev)
	if order == nil {
		return res
	}

	// The webhook path is trusted via its HMAC signature, not user identity.
	if ev.Source != SourceWebhook && ev.CallerUserID != 0 && order.UserId != ev.CallerUserID {
		return failure(ReasonUnauthorized, "order does not belong to the requesting user")
	}

	// Idempotent short-circuit. The stored state is the source of truth; a
	// PAID order needs no further writes and no duplicate email.
	if order.Status == models.OrderStatusPaid {
		return Result{Success: true, Reason: ReasonAlreadyPaid, OrderID: order.ID}
	}
	if order.Status == models.OrderStatusCancelled {
		return failure(ReasonNotEligible, "order is cancelled")
	}

	amountMinor := ev.AmountMinor
	reference := ev.Reference
	paidAt := ev.PaidAt
	if amountMinor == 0 {
		// The event carries only a claim, not the settlement facts; ask the
		// gateway. Poll and redirect events land here.
		if verified == nil {
			v, err := e.Gateway.Verify(ctx, reference)
			if err != nil {
				return failure(ReasonGatewayUnavailable, "unable to verify payment at this moment")
			}
			verified = v
		}
		if !verified.Succeeded {
			return failure(ReasonPaymentPending, "transaction status: "+verified.Status)
		}
		amountMinor = verified.AmountMinor
		if verified.Reference != "" {
			reference = verified.Reference
		}
		paidAt = verified.PaidAt
	}

	if !paystack.AmountWithinTolerance(order.TotalAmount, amountMinor) {
		// Never silently accept a mismatch: the order stays UNPAID and the
		// discrepancy is surfaced for manual review.
		e.Logger.WithFields(logrus.Fields{
			"order_id":       order.ID,
			"expected_minor": paystack.ToMinorUnits(order.TotalAmount),
			"claimed_minor":  amountMinor,
			"reference":      reference,
			"source":         ev.Source,
		}).Error("settlement amount mismatch; order left unpaid for manual reconciliation")
		return failure(ReasonAmountMismatch, "settlement amount does not match order total")
	}

	if paidAt == nil {
		now := time.Now().UTC()
		paidAt = &now
	}

	// Critical section: the conditional update and the payment upsert commit
	// together or not at all. A concurrent reconciliation racing us is
	// detected by the affected-row count, inside the same transaction.
	transitioned := false
	err := e.Ledger.Transaction(ctx, func(tx models.Ledger) error {
		affected, err := tx.MarkOrderPaid(ctx, order.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			current, err := tx.GetOrder(ctx, order.ID)
			if err != nil {
				return err
			}
			if current.Status == models.OrderStatusPaid {
				// Another caller won the race; nothing left to do.
				return nil
			}
			return errors.New("order is not eligible for payment")
		}
		transitioned = true
		return tx.UpsertPayment(ctx, &models.Payment{
			OrderId:   order.ID,
			Provider:  "paystack",
			Reference: reference,
			Status:    models.PaymentStatusSuccess,
			Amount:    paystack.ToMajorUnits(amountMinor),
			PaidAt:    paidAt,
		})
	})
	if err != nil {
		e.Logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"source":   ev.Source,
		}).Error("reconciliation transaction failed: " + err.Error())
		return failure(ReasonStoreFailure, "could not record payment")
	}

	if !transitioned {
		return Result{Success: true, Reason: ReasonAlreadyPaid, OrderID: order.ID}
	}

	// Post-commit side effect. The notifier is fire-and-forget; its failure
	// cannot roll anything back.
	if owner, err := e.Ledger.GetUser(ctx, order.UserId); err == nil {
		e.Notifier.OrderPaid(ctx, owner.Email, owner.Name, order.ID, order.TotalAmount)
	} else {
		e.Logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"user_id":  order.UserId,
		}).Warn("order paid but owner lookup failed; confirmation email skipped")
	}

	e.Logger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"reference": reference,
		"source":    ev.Source,
	}).Info("order marked paid")

	return Result{Success: true, OrderID: order.ID}
}

// resolveOrder finds the order an event talks about: direct id first, then
// the payment table by reference, then the gateway's transaction metadata.
// Returns the verify response when the gateway was consulted so Reconcile
// does not call it twice.
func (e *Engine) resolveOrder(ctx context.Context, ev Event) (*models.Order, *paystack.VerifyResult, Result) {
	if ev.OrderID != "" {
		order, err := e.Ledger.GetOrder(ctx, ev.OrderID)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, nil, failure(ReasonOrderNotFound, "order not found")
			}
			return nil, nil, failure(ReasonStoreFailure, "could not load order")
		}
		return order, nil, Result{}
	}

	if ev.Reference == "" {
		return nil, nil, failure(ReasonOrderNotFound, "no order id or transaction reference")
	}

	order, err := e.Ledger.GetOrderByPaymentReference(ctx, ev.Reference)
	if err == nil {
		return order, nil, Result{}
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, nil, failure(ReasonStoreFailure, "could not load order")
	}

	// No payment row yet: first confirmation for this reference. The order id
	// was embedded in the transaction metadata at initiation.
	verified, verr := e.Gateway.Verify(ctx, ev.Reference)
	if verr != nil {
		return nil, nil, failure(ReasonGatewayUnavailable, "unable to verify payment at this moment")
	}
	if verified.OrderID == "" {
		return nil, nil, failure(ReasonOrderNotFound, "transaction carries no order id")
	}
	order, err = e.Ledger.GetOrder(ctx, verified.OrderID)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, nil, failure(ReasonOrderNotFound, "order not found")
		}
		return nil, nil, failure(ReasonStoreFailure, "could not load order")
	}
	return order, verified, Result{}
}
