package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/sirupsen/logrus"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotEligible        = errors.New("order is not eligible for payment")
	ErrRateLimited        = errors.New("too many payment attempts, please try again later")
	ErrGatewayUnavailable = errors.New("failed to initialize payment")
)

// initiation throttle: bounded provider-initialization calls per user.
const initiationLimitKey = "payment-init"

type InitiationResult struct {
	// AlreadyPaid signals the caller to show the success page instead of
	// re-initiating payment. Not an error.
	AlreadyPaid      bool
	AuthorizationURL string
	Reference        string
}

// InitiatePayment validates eligibility and obtains a hosted-page redirect
// URL for the order. The order id travels in the transaction metadata so the
// webhook and the poller can resolve the order from the provider reference.
func (e *Engine) InitiatePayment(ctx context.Context, userID int, orderID string) (*InitiationResult, error) {
	if e.Limiter != nil {
		key := fmt.Sprintf("%s:%d", initiationLimitKey, userID)
		allowed, err := e.Limiter.Allow(ctx, key)
		if err != nil {
			// A broken counter store must not take checkout down with it.
			e.Logger.WithFields(logrus.Fields{
				"user_id": userID,
			}).Warn("rate limiter unavailable; allowing initiation: " + err.Error())
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	order, err := e.Ledger.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.UserId != userID {
		return nil, ErrUnauthorized
	}

	if order.Status != models.OrderStatusUnpaid {
		if order.Status == models.OrderStatusPaid {
			return &InitiationResult{AlreadyPaid: true}, nil
		}
		return nil, ErrNotEligible
	}

	owner, err := e.Ledger.GetUser(ctx, order.UserId)
	if err != nil {
		return nil, err
	}
	if owner.Email == "" {
		return nil, errors.New("user email is required for payment")
	}

	init, err := e.Gateway.Initialize(ctx, owner.Email, order.TotalAmount, order.ID)
	if err != nil {
		// Surface the gateway's own message; never swallow it silently.
		e.Logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"user_id":  userID,
		}).Error("payment initialization failed: " + err.Error())
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	}

	return &InitiationResult{
		AuthorizationURL: init.AuthorizationURL,
		Reference:        init.Reference,
	}, nil
}
