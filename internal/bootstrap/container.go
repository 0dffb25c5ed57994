package bootstrap

import (
	"context"
	"fmt"
	"log"

	"career-chat-be/internal/config"
	"career-chat-be/internal/controller"
	"career-chat-be/internal/handler"
	"career-chat-be/internal/pkg/logger"
	"career-chat-be/internal/pkg/serverutils"
	"career-chat-be/internal/repository/memory"
	"career-chat-be/internal/repository/unitofwork"
	"career-chat-be/internal/service"
	"career-chat-be/internal/websocket"
	"career-chat-be/pkg/counselor"
	"career-chat-be/pkg/llm/factory"

	pktNats "career-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	UserController    controller.IUserController
	ChatbotController controller.IChatbotController

	// Resolves the caller on every authenticated route
	JwtMiddleware fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHandler *handler.WebSocketHandler
	WebSocketHub     *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every dependency. A nil db selects the in-memory store.
// A missing AI credential is fatal here rather than on the first message.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	if cfg.Auth.JwtSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		log.Println("[WARN] JWT_SECRET is empty, using an insecure development secret")
		cfg.Auth.JwtSecret = "dev-insecure-secret"
	}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Println("[INFO] Using in-memory repositories")
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
	}
	sendResults := memory.NewSendResultRepository(cfg.Chat.SendDedupTTL)

	c := &Container{Logger: sysLogger}

	// 2. AI
	providerCfg := factory.Config{
		Provider: cfg.Ai.Provider,
		Model:    cfg.Ai.Model,
		APIKey:   cfg.Ai.GoogleGemini,
		Timeout:  cfg.Ai.Timeout,
	}
	switch cfg.Ai.Provider {
	case "ollama":
		providerCfg.BaseURL = cfg.Ai.OllamaBaseURL
	case "huggingface":
		providerCfg.APIKey = cfg.Ai.HuggingFaceKey
		providerCfg.BaseURL = cfg.Ai.HuggingFaceURL
	}
	llmProvider, err := factory.NewLLMProvider(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	model := cfg.Ai.Model
	if model == "" {
		model = factory.DefaultModel(cfg.Ai.Provider)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, model)

	advisor := counselor.New(llmProvider, counselor.Config{
		Temperature:  cfg.Ai.Temperature,
		MaxTokens:    cfg.Ai.MaxTokens,
		HistoryLimit: cfg.Ai.HistoryLimit,
	})

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 4. Infrastructure
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. WebSocket delivery stays local", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.WebSocketHandler = handler.NewWebSocketHandler(c.WebSocketHub, cfg.Auth.JwtSecret, wsLogger)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Chat.EventsTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Chat.EventsTopic, c.WebSocketHub, forwarder, sysLogger)

	authService := service.NewAuthService(uowFactory, publisherService, sysLogger, cfg.Auth.JwtSecret, cfg.Auth.JwtTTL)
	userService := service.NewUserService(uowFactory)
	chatbotService := service.NewChatbotService(
		uowFactory,
		advisor,
		sendResults,
		publisherService,
		sysLogger,
		service.ChatbotConfig{
			HistoryLimit:      cfg.Ai.HistoryLimit,
			FailOnUnavailable: cfg.Ai.FailOnUnavailable,
		},
	)

	// 6. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.UserController = controller.NewUserController(userService)
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.JwtMiddleware = serverutils.JwtMiddleware(cfg.Auth.JwtSecret)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
