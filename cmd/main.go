package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inventaire/internal/config"
	"inventaire/internal/handlers"
	"inventaire/internal/models"
	"inventaire/internal/repositories"
	"inventaire/internal/services"
	"inventaire/internal/session"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	institutionRepo := repositories.NewInstitutionRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	itemTypeRepo := repositories.NewItemTypeRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	orderItemRepo := repositories.NewOrderItemRepository(db)
	messageRepo := repositories.NewOrderMessageRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)

	authService := services.NewAuthService(db, userRepo, profileRepo, roleRepo)
	orderService := services.NewOrderService(db, catalogRepo, itemRepo, orderRepo, orderItemRepo, messageRepo, profileRepo)
	catalogService := services.NewCatalogService(db, institutionRepo, catalogRepo, itemTypeRepo, itemRepo, orderRepo, profileRepo, membershipRepo)

	router := gin.Default()
	router.Use(handlers.CORS(cfg.WebOrigin))

	handlers.RegisterRoutes(router, authService, orderService, catalogService, sessions, cfg.WebOrigin)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
