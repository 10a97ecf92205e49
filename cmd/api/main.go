package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"subpay/internal/config"
	"subpay/internal/database"
	"subpay/internal/gateway"
	"subpay/internal/middleware"
	"subpay/internal/modules/auth"
	"subpay/internal/modules/payment"
	"subpay/internal/modules/subscription"
	jwtsvc "subpay/internal/pkg/jwt"
	"subpay/internal/repository"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	paymentCfg, err := config.LoadPaymentConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	j := jwtsvc.New(secret, 24*time.Hour)

	hub := payment.NewEventsHub()
	defer hub.Close()

	activator := subscription.NewService(userRepo, log.Printf)
	subscriptionHandler := subscription.NewHandler(activator)

	authService := auth.NewService(userRepo, j, log.Printf)
	authHandler := auth.NewHandler(authService)

	gatewayClient := gateway.NewClient(paymentCfg)
	paymentService := payment.NewService(paymentRepo, eventRepo, userRepo, gatewayClient, activator, hub, paymentCfg, log.Printf)
	paymentHandler := payment.NewHandler(paymentService, log.Printf)
	wsHandler := payment.NewWSHandler(hub, j)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public: registration/login, webhook delivery and the websocket
		// feed (token via query)
		authHandler.RegisterPublicRoutes(v1)
		paymentHandler.RegisterPublicRoutes(v1)
		wsHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
			subscriptionHandler.RegisterProtectedRoutes(protected)
		}
	}

	addr := ":" + envOrDefault("PORT", "8080")
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
