package main

import (
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/gin-gonic/gin"
)

func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := models.Signup(c.Request.Context(), input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		info, err := models.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil || !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not log out"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// forgotPasswordHandler answers success whether or not the email exists, so
// the endpoint cannot be used to probe for accounts.
func forgotPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		var req forgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		token, err := models.CreatePasswordResetToken(c.Request.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, utils.ErrorRecordNotFound) {
				config.LogError(config.GetLogger(), "auth.go", "forgotPasswordHandler", "CreatePasswordResetToken", nil, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start password reset"})
				return
			}
		} else {
			resetURL := os.Getenv("APP_URL") + "/reset-password?token=" + token + "&email=" + url.QueryEscape(req.Email)
			getNotifier().PasswordReset(c.Request.Context(), req.Email, resetURL)
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type resetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func resetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		if err := models.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func deactivateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		if err := models.DeactivateAccount(c.Request.Context(), userID); err != nil {
			if errors.Is(err, models.ErrUndeliveredOrders) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
