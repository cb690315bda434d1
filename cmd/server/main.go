package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/finlens/backend/docs"
	"github.com/finlens/backend/internal/database"
	mW "github.com/finlens/backend/internal/middleware"
	"github.com/finlens/backend/internal/services"
)

// @title FinLens Backend API
// @version 1.0
// @description API for personal finance tracking and insights
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "FinLens Backend API"
	docs.SwaggerInfo.Description = "API for personal finance tracking and insights"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.MustOpen()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditService := services.NewAuditService(db)
	authService := services.NewAuthService(db, redisClient, auditService)
	userService := services.NewUserService(db, auditService)
	insightService := services.NewInsightService(db)
	dashboardService := services.NewDashboardService(db)
	accountService := services.NewAccountService(db, auditService)
	assetService := services.NewAssetService(db, auditService)
	transactionService := services.NewTransactionService(db, auditService)
	categoryService := services.NewCategoryService()
	voiceService := services.NewVoiceCaptureService()
	defer voiceService.Close()

	auth := mW.NewAuth(redisClient)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/categories", categoryService.HandleList)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(auth.Handler)

			r.Get("/auth/account", authService.GetUserAccount)
			r.Put("/users/profile", userService.UpdateProfile)
			r.Delete("/users/account", userService.DeleteAccount)

			r.Get("/dashboard", dashboardService.HandleGet)

			r.Get("/insights", insightService.HandleList)
			r.Post("/insights", insightService.HandleCreate)
			r.Post("/insights/read-all", insightService.HandleMarkAllRead)
			r.Get("/insights/{id}", insightService.HandleGet)
			r.Put("/insights/{id}", insightService.HandleUpdate)
			r.Delete("/insights/{id}", insightService.HandleDelete)
			r.Post("/insights/{id}/read", insightService.HandleMarkRead)

			r.Get("/accounts", accountService.HandleList)
			r.Post("/accounts", accountService.HandleCreate)
			r.Put("/accounts/{id}", accountService.HandleUpdate)
			r.Delete("/accounts/{id}", accountService.HandleDelete)

			r.Get("/assets", assetService.HandleList)
			r.Post("/assets", assetService.HandleCreate)
			r.Put("/assets/{id}", assetService.HandleUpdate)
			r.Delete("/assets/{id}", assetService.HandleDelete)

			r.Get("/transactions", transactionService.HandleList)
			r.Post("/transactions", transactionService.HandleCreate)
			r.Delete("/transactions/{id}", transactionService.HandleDelete)
			r.Post("/transactions/voice-transcribe", voiceService.HandleCapture)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
