package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/paystack"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/workflow"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type signatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type reconciler interface {
	Reconcile(ctx context.Context, ev workflow.Event) workflow.Result
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
		Metadata  struct {
			OrderID string `json:"order_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// paystackWebhookHandler authenticates and decodes provider callbacks, then
// delegates to the reconciliation engine. A 2xx acknowledges delivery
// (including the idempotent already-paid case); any 5xx makes the provider
// retry.
func paystackWebhookHandler(verifier signatureVerifier, engine func() reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		// The signature covers the exact raw bytes; capture them before any
		// JSON parsing touches the body.
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "webhook.go", "paystackWebhookHandler", "io.ReadAll", nil, err)
			c.Status(http.StatusBadRequest)
			return
		}

		signature := c.GetHeader(paystack.SignatureHeader)
		if signature == "" || !verifier.VerifyWebhookSignature(rawBody, signature) {
			logger.WithFields(logrus.Fields{
				"remote": c.ClientIP(),
			}).Warn("invalid paystack webhook signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		var payload paystackWebhookPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			config.LogError(logger, "webhook.go", "paystackWebhookHandler", "Unmarshal body", string(rawBody), err)
			c.Status(http.StatusBadRequest)
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "paystack.webhook")
		defer span.End()

		// Audit every authenticated delivery; mismatches and failures get
		// reviewed from these rows.
		audit := models.WebhookEvent{
			Provider:       "paystack",
			EventType:      payload.Event,
			Reference:      payload.Data.Reference,
			Payload:        string(rawBody),
			SignatureValid: true,
		}
		if err := models.RecordWebhookEvent(ctx, &audit); err != nil {
			config.LogError(logger, "webhook.go", "paystackWebhookHandler", "RecordWebhookEvent", payload.Event, err)
		}

		// Only settled charges reconcile; everything else is acknowledged
		// and ignored.
		if payload.Event != "charge.success" {
			models.MarkWebhookEventProcessed(ctx, audit.ID, "")
			c.Status(http.StatusOK)
			return
		}

		if payload.Data.Metadata.OrderID == "" && payload.Data.Reference == "" {
			models.MarkWebhookEventProcessed(ctx, audit.ID, "no order id or reference in event")
			c.JSON(http.StatusBadRequest, gin.H{"error": "no order id"})
			return
		}

		// Best-effort lock per reference so a provider retry racing the poller
		// does not both hit the gateway. Reliability does not depend on it:
		// the engine's conditional update is the real serialization point.
		var lock *redislock.Lock
		if redisLock := config.GetRedisLock(); redisLock != nil {
			lock, err = redisLock.Obtain(ctx, fmt.Sprintf("payment:%s", payload.Data.Reference), 30*time.Second, nil)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"reference": payload.Data.Reference,
				}).Warn("could not obtain redis lock; proceeding without it")
				lock = nil
			}
		}
		defer func() {
			if lock == nil {
				return
			}
			if releaseErr := lock.Release(ctx); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"reference": payload.Data.Reference,
				}).Warn("failed to release redis lock: " + releaseErr.Error())
			}
		}()

		ev := workflow.Event{
			OrderID:     payload.Data.Metadata.OrderID,
			Reference:   payload.Data.Reference,
			AmountMinor: payload.Data.Amount,
			Source:      workflow.SourceWebhook,
		}
		if payload.Data.PaidAt != "" {
			if t, perr := time.Parse(time.RFC3339, payload.Data.PaidAt); perr == nil {
				ev.PaidAt = &t
			}
		}

		result := engine().Reconcile(ctx, ev)
		if result.Success {
			models.MarkWebhookEventProcessed(ctx, audit.ID, "")
			c.Status(http.StatusOK)
			return
		}

		models.MarkWebhookEventProcessed(ctx, audit.ID, string(result.Reason)+": "+result.Message)

		switch result.Reason {
		case workflow.ReasonOrderNotFound, workflow.ReasonNotEligible:
			// Non-retryable: acknowledging with 4xx stops provider retries;
			// the audit row surfaces it for investigation.
			c.JSON(http.StatusBadRequest, gin.H{"error": result.Message})
		default:
			// AmountMismatch and transient failures answer 5xx so the
			// provider retries; mismatches additionally land in the error
			// log for manual reconciliation.
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Message})
		}
	}
}
