package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"primetask/internal/auth"
	"primetask/internal/config"
	"primetask/internal/handler"
	"primetask/internal/middleware"
	"primetask/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("❌ failed to run migrations: %w", err)
	}
	log.Println("✅ Migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("❌ failed to connect to Redis: %w", err)
	}
	log.Println("✅ Connected to Redis")

	// Setup Gin
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Token issuer with a Redis-backed revocation set
	revocationStore := auth.NewRedisRevocationStore(rdb)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, revocationStore)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userRepo, issuer)
	userHandler := handler.NewUserHandler(userRepo, taskRepo)
	taskHandler := handler.NewTaskHandler(taskRepo)

	api := r.Group("/api/v1")

	// Public auth routes
	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)

	// Protected auth/profile routes
	account := authRoutes.Group("")
	account.Use(middleware.JWTAuthMiddleware(issuer))
	{
		account.POST("/logout", authHandler.Logout)
		account.GET("/profile", userHandler.Profile)
		account.PUT("/profile", userHandler.UpdateProfile)
		account.PATCH("/profile", userHandler.UpdateProfile)
		account.PUT("/change-password", userHandler.ChangePassword)

		adminUsers := account.Group("/admin/users", middleware.RequireAdmin())
		adminUsers.GET("", userHandler.AdminListUsers)
		adminUsers.GET("/:id", userHandler.AdminGetUser)
		adminUsers.PUT("/:id", userHandler.AdminUpdateUser)
		adminUsers.DELETE("/:id", userHandler.AdminDeleteUser)
	}

	// Task routes - require authentication
	taskRoutes := api.Group("/tasks")
	taskRoutes.Use(middleware.JWTAuthMiddleware(issuer))
	{
		taskRoutes.GET("", taskHandler.List)
		taskRoutes.POST("", taskHandler.Create)
		taskRoutes.GET("/stats", taskHandler.Stats)
		taskRoutes.GET("/:id", taskHandler.GetByID)
		taskRoutes.PUT("/:id", taskHandler.Update)
		taskRoutes.PATCH("/:id", taskHandler.Update)
		taskRoutes.DELETE("/:id", taskHandler.Delete)

		adminTasks := taskRoutes.Group("/admin", middleware.RequireAdmin())
		adminTasks.GET("/all", taskHandler.AdminList)
		adminTasks.DELETE("/:id", taskHandler.AdminDelete)
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Server{
		Engine: r,
		DB:     db,
		Redis:  rdb,
		Config: cfg,
	}, nil
}

func runMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}
	if err := s.Redis.Close(); err != nil {
		log.Printf("⚠️  Failed to close Redis client: %s", err)
	}

	log.Println("✅ Server exited properly")
}
