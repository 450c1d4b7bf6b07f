package main

import (
	"errors"
	"net/http"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/workflow"
	"github.com/gin-gonic/gin"
)

func initiatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())
		orderID := c.Param("id")

		result, err := getEngine().InitiatePayment(c.Request.Context(), userID, orderID)
		if err != nil {
			switch {
			case errors.Is(err, workflow.ErrRateLimited):
				c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			case errors.Is(err, workflow.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, workflow.ErrUnauthorized):
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			case errors.Is(err, workflow.ErrNotEligible):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, workflow.ErrGatewayUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		if result.AlreadyPaid {
			c.JSON(http.StatusOK, gin.H{
				"already_paid": true,
				"redirect":     "/orders/" + orderID + "/success",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"authorization_url": result.AuthorizationURL,
			"reference":         result.Reference,
		})
	}
}

// verifyPaymentHandler runs the bounded verification poller under the request
// context: the client navigating away cancels the request and stops polling.
func verifyPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())
		reference := c.Query("reference")

		poller := workflow.NewPoller(getEngine())
		outcome := poller.Run(c.Request.Context(), userID, reference)

		status := http.StatusOK
		if outcome.State == workflow.PollStateError {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"state":    outcome.State,
			"message":  outcome.Message,
			"order_id": outcome.OrderID,
		})
	}
}
