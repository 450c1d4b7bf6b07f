package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/middlewares"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/notify"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/paystack"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("lead-driven-ecommerce")

// getEngine builds the reconciliation engine from the current global
// connections. Construction is cheap and the DB/redis handles are connected
// after the listener starts, so this cannot be a package-level singleton.
func getEngine() *workflow.Engine {
	return &workflow.Engine{
		Ledger:   models.NewGormLedger(config.GetDB()),
		Gateway:  paystack.NewClientFromEnv(),
		Notifier: getNotifier(),
		Limiter:  middlewares.NewRateLimiter(config.GetRedisDB(), 3, time.Minute),
		Logger:   config.GetLogger(),
	}
}

func getNotifier() notify.Notifier {
	return notify.NewService(notify.NewBrevoClientFromEnv(), config.GetLogger())
}

func getRouter() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = splitAndTrim(origins)
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth (IP rate-limited to blunt credential stuffing).
	authLimiter := middlewares.NewRateLimiter(config.GetRedisDB(), 10, time.Minute)
	auth := r.Group("/auth", authLimiter.Middleware("auth"))
	{
		auth.POST("/signup", signupHandler())
		auth.POST("/login", loginHandler())
		auth.POST("/logout", middlewares.RequireAuth(), logoutHandler())
		auth.POST("/forgot-password", forgotPasswordHandler())
		auth.POST("/reset-password", resetPasswordHandler())
	}

	// Storefront catalog (public read).
	r.GET("/products", listProductsHandler())
	r.GET("/products/:id", getProductHandler())

	// Orders and payments (authenticated).
	authed := r.Group("/", middlewares.RequireAuth())
	{
		authed.POST("/orders", createOrderHandler())
		authed.GET("/orders", listOrdersHandler())
		authed.GET("/orders/:id", getOrderHandler())
		authed.POST("/orders/:id/pay", initiatePaymentHandler())
		authed.GET("/payments/verify", verifyPaymentHandler())
		authed.POST("/account/deactivate", deactivateAccountHandler())
	}

	// Provider callbacks (authenticated by signature, not session).
	r.POST("/webhooks/paystack", paystackWebhookHandler(paystack.NewClientFromEnv(), func() reconciler { return getEngine() }))

	// Back office.
	admin := r.Group("/admin", middlewares.RequireAuth(), middlewares.RequireAdmin())
	{
		admin.POST("/products", createProductHandler())
		admin.PUT("/products/:id", updateProductHandler())
		admin.DELETE("/products/:id", deleteProductHandler())
		admin.GET("/orders", adminListOrdersHandler())
		admin.PUT("/orders/:id/fulfillment", updateFulfillmentHandler())
		admin.GET("/users", adminListUsersHandler())
		admin.PUT("/users/:id/active", adminSetUserActiveHandler())
		admin.GET("/analytics", analyticsHandler())
		admin.GET("/analytics/export", analyticsExportHandler())
	}

	return r
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: getRouter(),
	}

	// Start listening first; DB and redis connect behind the listener so the
	// container becomes routable quickly.
	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
