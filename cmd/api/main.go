package main

import (
	"context"
	"log"
	"os"

	_ "purchaseboard/api/swagger" // swagger docs
	"purchaseboard/internal/database"
	"purchaseboard/internal/handler"
	"purchaseboard/internal/middleware"
	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"
	"purchaseboard/internal/service"
	"purchaseboard/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Purchase Board API
// @version         1.0
// @description     Shared purchase-request board with live change notifications.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	titheRepo := repository.NewTitheRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, auditRepo)
	requestService := service.NewRequestService(requestRepo, commentRepo, userRepo, auditRepo, txManager, wsHub)
	commentService := service.NewCommentService(commentRepo, requestRepo, auditRepo, txManager, wsHub)
	titheService := service.NewTitheService(titheRepo, userRepo, auditRepo, txManager)
	recordService := service.NewRecordService(requestRepo)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	requestHandler := handler.NewRequestHandler(requestService, commentService)
	titheHandler := handler.NewTitheHandler(titheService)
	recordHandler := handler.NewRecordHandler(recordService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint. Browser clients cannot set headers on the
	// upgrade request, so the token comes in as ?token= and the same
	// approval rules as the HTTP gate apply.
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(token string) bool {
			userID, verifyErr := middleware.VerifyToken(token, middleware.GetJWTSecret())
			if verifyErr != nil {
				return false
			}
			user, lookupErr := userRepo.GetByID(context.Background(), userID)
			if lookupErr != nil {
				return false
			}
			return user.Status == model.UserStatusApproved
		})
	})

	// Register API Routes
	requireApproved := middleware.RequireApproved(userRepo)
	userHandler.RegisterRoutes(router.Group(""), requireApproved)
	requestHandler.RegisterRoutes(router.Group(""), requireApproved)
	titheHandler.RegisterRoutes(router.Group(""), requireApproved)
	recordHandler.RegisterRoutes(router.Group(""), requireApproved)
	auditHandler.RegisterRoutes(router.Group(""), requireApproved)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
