package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-concierge-be/internal/config"
	"ai-concierge-be/internal/controller"
	"ai-concierge-be/internal/pkg/logger"
	"ai-concierge-be/internal/repository/implementation"
	"ai-concierge-be/internal/repository/memory"
	"ai-concierge-be/internal/service"
	"ai-concierge-be/pkg/cache"
	"ai-concierge-be/pkg/embedding"
	"ai-concierge-be/pkg/llm/factory"
	"ai-concierge-be/pkg/pipeline"
	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/search"

	pktNats "ai-concierge-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ConciergeController controller.ConciergeController

	// Background Services (Exposed for main.go to run)
	EvaluationService service.EvaluationService

	// Shared infrastructure exposed for shutdown
	NatsPublisher *pktNats.Publisher
	Redis         *redis.Client
}

// NewContainer wires the whole process: resilience primitives, cache,
// providers, the search engine, the pipeline stages and the HTTP surface.
// Everything shared across turns is constructed exactly once here and passed
// by reference, never looked up globally.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.Default()

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		// The cache is fail-open; the process starts without Redis.
		sysLogger.Warn("bootstrap", fmt.Sprintf("Failed to connect to Redis: %v", err), nil)
	}

	redisCache := cache.New(rdb, stdLogger)
	breakers := resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig(), stdLogger)

	// Embedding Provider
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}
	cachedEmbedder := embedding.NewCachedProvider(
		embeddingProvider,
		redisCache,
		breakers,
		time.Duration(cfg.Pipeline.EmbeddingCacheTTL)*time.Hour,
		stdLogger,
	)

	// LLM Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Facet table
	facetConfig, err := search.LoadFacetConfig(cfg.Pipeline.FacetConfigPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load facet config: %v", err)
	}

	// Repositories
	embeddingRepo := implementation.NewConferenceEmbeddingRepository(db)
	profileRepo := implementation.NewUserProfileRepository(db)
	conversationRepo := implementation.NewConversationRepository(db)
	faqRepo := implementation.NewFaqRepository(db)
	sessionRepo := memory.NewSessionRepository()

	// Search engine over the pgvector index
	engine := search.NewEngine(embeddingRepo, cachedEmbedder, facetConfig, breakers, stdLogger)

	// Pipeline stages
	contextStage := pipeline.NewContextStage(
		service.NewProfileStoreAdapter(profileRepo),
		service.NewHistoryStoreAdapter(conversationRepo),
		redisCache,
		breakers,
		stdLogger,
	)
	plannerStage := pipeline.NewPlannerStage(llmProvider, breakers, stdLogger)
	executorStage := pipeline.NewExecutorStage(engine, cachedEmbedder, stdLogger)
	checkerStage := pipeline.NewCheckerStage(engine, cfg.Pipeline.MaxRetryCount, stdLogger)
	respondStage := pipeline.NewRespondStage(llmProvider, service.NewFaqStoreAdapter(faqRepo), breakers, stdLogger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Context:  contextStage,
		Planner:  plannerStage,
		Executor: executorStage,
		Checker:  checkerStage,
		Respond:  respondStage,
	}, stdLogger)

	// Services
	conciergeService := service.NewConciergeService(
		orchestrator,
		contextStage,
		profileRepo,
		conversationRepo,
		sessionRepo,
		pubSub,
		stdLogger,
	)
	evaluationService := service.NewEvaluationService(pubSub, natsPub, stdLogger)

	return &Container{
		ConciergeController: controller.NewConciergeController(conciergeService),
		EvaluationService:   evaluationService,
		NatsPublisher:       natsPub,
		Redis:               rdb,
	}
}
