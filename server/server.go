package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/config"
	"github.com/duonguwu/notification-bot/handlers"
	"github.com/duonguwu/notification-bot/kafka"
	"github.com/duonguwu/notification-bot/limiter"
	"github.com/duonguwu/notification-bot/llm"
	custommiddleware "github.com/duonguwu/notification-bot/middleware"
	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/redis"
	"github.com/duonguwu/notification-bot/services"
)

type Server struct {
	Echo   *echo.Echo
	DB     *gorm.DB
	Config *config.Config

	AuthHandler         *handlers.AuthHandler
	CustomerHandler     *handlers.CustomerHandler
	MessageHandler      *handlers.MessageHandler
	NotificationHandler *handlers.NotificationHandler
	TaskHandler         *handlers.TaskHandler
	ChatWSHandler       *handlers.ChatWebSocketHandler

	messageLimiter echo.MiddlewareFunc
}

// NewServer is the composition root: every store, client and service
// is constructed once here and passed down explicitly.
func NewServer() *Server {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		log.Fatal("Failed to auto-migrate database:", err)
	}

	cache, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}

	saramaConfig, err := kafka.NewSaramaConfig(&cfg.Kafka)
	if err != nil {
		log.Fatal("Failed to build kafka config:", err)
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.JobsTopic, saramaConfig)
	if err != nil {
		log.Fatal("Failed to connect to kafka:", err)
	}

	modelClient := llm.NewGeminiClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.BaseURL,
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentLength},
		MaxAge:           86400,
	}))

	authService := services.NewAuthService(db, &cfg.Auth)
	chatService := services.NewChatService(db)
	memoryService := services.NewMemoryService(
		db, cache,
		time.Duration(cfg.Memory.ShortTermTTLSeconds)*time.Second,
		cfg.Memory.MaxHistory,
	)
	chatbotService := services.NewChatbotService(memoryService, modelClient)

	limitManager := limiter.NewManager(cache.Raw(), &limiter.FixedWindowStrategy{})
	messageLimiter := custommiddleware.RateLimitMiddleware(
		limitManager, cfg.Limit.MessagesPerMinute, time.Minute,
		func(c echo.Context) string {
			// One bucket per authenticated caller, by IP when anonymous.
			if user, ok := c.Get("user").(*models.User); ok {
				return user.Username
			}
			return c.RealIP()
		},
	)

	s := &Server{
		Echo:   e,
		DB:     db,
		Config: &cfg,

		AuthHandler:         handlers.NewAuthHandler(authService),
		CustomerHandler:     handlers.NewCustomerHandler(db, producer, &cfg.Upload),
		MessageHandler:      handlers.NewMessageHandler(db, chatService, chatbotService, memoryService),
		NotificationHandler: handlers.NewNotificationHandler(db, producer),
		TaskHandler:         handlers.NewTaskHandler(db),
		ChatWSHandler:       handlers.NewChatWebSocketHandler(db, chatService, chatbotService),

		messageLimiter: messageLimiter,
	}

	authMiddleware := custommiddleware.AuthMiddleware(authService)
	s.SetupRoutes(authMiddleware)
	return s
}

func (s *Server) Start(addr string) {
	log.Fatal(s.Echo.Start(addr))
}
