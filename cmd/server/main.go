package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/chatrelay/internal/api"
	"github.com/lalith-99/chatrelay/internal/auth"
	"github.com/lalith-99/chatrelay/internal/cache"
	"github.com/lalith-99/chatrelay/internal/config"
	"github.com/lalith-99/chatrelay/internal/db"
	"github.com/lalith-99/chatrelay/internal/middleware"
	"github.com/lalith-99/chatrelay/internal/observ"
	"github.com/lalith-99/chatrelay/internal/presence"
	"github.com/lalith-99/chatrelay/internal/realtime"
	"github.com/lalith-99/chatrelay/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline; Background() is the right root here.
	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Redis connection established", zap.String("addr", redisOpts.Addr))

	// Repositories share the pool; assigning through the constructors
	// keeps the stores behind the repository interfaces everywhere else.
	pool := database.Pool()
	roomRepo := postgres.NewRoomStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	userRepo := postgres.NewUserStore(pool)

	presenceTable := presence.NewTable(rdb, cfg.PresenceTTL)
	recentCache := cache.NewRecent(rdb,
		cfg.RoomCacheCap, cfg.RoomCacheTTL,
		cfg.DirectCacheCap, cfg.DirectCacheTTL)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	hub := realtime.NewHub(verifier, membershipRepo, messageRepo, presenceTable, recentCache, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg, logger)
	roomHandler := api.NewRoomHandler(roomRepo, membershipRepo, logger)
	membershipHandler := api.NewMembershipHandler(roomRepo, membershipRepo, logger)
	messageHandler := api.NewMessageHandler(messageRepo, membershipRepo, recentCache, logger)
	userHandler := api.NewUserHandler(userRepo, presenceTable, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Public surface: health for load balancers, auth to mint tokens, and
	// the WebSocket upgrade (the credential rides in the connect event).
	srv.GET("/v1/health", api.Health(database, rdb))
	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)
	srv.GET("/ws", hub.HandleWS)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		v1.GET("/rooms", roomHandler.List)
		v1.POST("/rooms", roomHandler.Create)
		v1.GET("/rooms/:id", roomHandler.GetByID)
		v1.POST("/rooms/:id/join", membershipHandler.Join)
		v1.POST("/rooms/:id/leave", membershipHandler.Leave)
		v1.GET("/rooms/:id/members", membershipHandler.ListMembers)
		v1.GET("/rooms/:id/messages", messageHandler.ListByRoom)
		v1.GET("/messages/direct/:user_id", messageHandler.ListDirect)
		v1.GET("/users/me", userHandler.GetMe)
		v1.GET("/users/online", userHandler.ListOnline)
	}

	logger.Info("starting chatrelay",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	if err := srv.Run(":" + cfg.Port); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
