package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AyushDwivedi1230000/Music-Rooms/internal/auth"
	"github.com/AyushDwivedi1230000/Music-Rooms/internal/room"
	roomsync "github.com/AyushDwivedi1230000/Music-Rooms/internal/sync"
	"github.com/AyushDwivedi1230000/Music-Rooms/internal/ws"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/database"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/events"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/redis"
)

func main() {
	// Load environment variables; .env is optional in production.
	_ = godotenv.Load()

	var logger *zap.Logger
	var err error
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize MySQL database
	db, err := database.NewMySQLDB(
		os.Getenv("MYSQL_HOST"),
		os.Getenv("MYSQL_PORT"),
		os.Getenv("MYSQL_USER"),
		os.Getenv("MYSQL_PASSWORD"),
		os.Getenv("MYSQL_DATABASE"),
	)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Initialize Kafka client for the room event feed
	kafkaClient := events.NewKafkaClient(
		strings.Split(os.Getenv("KAFKA_BROKERS"), ","),
		"room-events",
		os.Getenv("KAFKA_GROUP_ID"),
	)
	defer kafkaClient.Close()

	sessionStore := redis.NewSessionStore(redisClient)
	roomCache := redis.NewRoomCache(redisClient)

	// Sync engine and fanout. The hub broadcasts for the engine; the engine
	// serializes every room mutation the hub's handlers dispatch.
	engine := roomsync.New(db, logger)
	engine.SetRoomCache(roomCache)
	engine.SetEventPublisher(kafkaClient)
	defer engine.Close()

	hub := ws.NewHub(logger)
	engine.SetBroadcaster(hub)

	roomService := room.NewService(db, roomCache, engine, logger)

	// Initialize handlers
	authHandler := auth.NewHandler(db, sessionStore)
	roomHandler := room.NewHandler(roomService, engine, hub)
	wsHandler := ws.NewHandler(engine, hub, kafkaClient, logger)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	wsHandler.StartRelay(relayCtx)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "https://your-frontend-domain.com"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(auth.AuthMiddleware(sessionStore))
	{
		roomHandler.RegisterRoutes(protected)

		// WebSocket endpoint
		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
