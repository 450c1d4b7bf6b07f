package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/gin-gonic/gin"
)

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		order, err := models.CreateOrder(c.Request.Context(), userID, input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if email, ok := utils.GetUserEmailFromContext(c.Request.Context()); ok {
			getNotifier().OrderCreated(c.Request.Context(), email, order.ID, order.TotalAmount)
		}

		c.JSON(http.StatusCreated, gin.H{"order_id": order.ID, "total_amount": order.TotalAmount})
	}
}

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		orders, err := models.GetOrdersByUser(c.Request.Context(), userID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())

		order, err := models.GetOrderWithItems(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if order.UserId != userID && !isAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func adminListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		status := c.Query("status")

		orders, err := models.GetOrders(c.Request.Context(), status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

type fulfillmentRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateFulfillmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		var req fulfillmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		status, err := models.ParseFulfillmentStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := models.UpdateFulfillmentStatus(c.Request.Context(), c.Param("id"), status)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if order.User.Email != "" {
			getNotifier().FulfillmentChanged(c.Request.Context(), order.User.Email, order.ID, string(status))
		}

		c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "fulfillment_status": order.FulfillmentStatus})
	}
}

func adminListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		users, err := models.GetUsers(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

type userActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func adminSetUserActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var req userActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := models.SetUserActive(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
