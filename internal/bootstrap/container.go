package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-examgen-be/internal/config"
	"ai-examgen-be/internal/controller"
	"ai-examgen-be/internal/pkg/logger"
	"ai-examgen-be/internal/repository/implementation"
	"ai-examgen-be/internal/service"
	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/embedding"
	"ai-examgen-be/pkg/generation"
	"ai-examgen-be/pkg/llm/ollama"
	"ai-examgen-be/pkg/novelty"
	"ai-examgen-be/pkg/rerank"
	"ai-examgen-be/pkg/retrieval"
)

type Container struct {
	// Controllers
	GenerationController controller.IGenerationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, cache runs memory-only: %v", err)
		rdb = nil
	}

	twoTier := cache.New(rdb)
	generationLock := cache.NewGenerationLock(rdb, cfg.Generation.LockTTL)

	// 3. AI Providers
	var embeddingProvider embedding.Provider = embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, twoTier)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.DefaultModel)
	log.Printf("[INFO] Using LLM Provider: OLLAMA (%s)", cfg.Ai.DefaultModel)

	var reranker rerank.Reranker
	if cfg.Ai.RerankerURL != "" {
		reranker = rerank.NewCachedReranker(
			rerank.NewHTTPProvider(cfg.Ai.RerankerURL, cfg.Keys.RerankerAPIKey, cfg.Ai.RerankerModel),
			twoTier,
		)
		log.Printf("[INFO] Reranker enabled: %s", cfg.Ai.RerankerModel)
	} else {
		log.Printf("[INFO] Reranker disabled, ranking on fused scores only")
	}

	// 4. Retrieval Pipeline
	chunkRepo := implementation.NewChunkEmbeddingRepository(db)
	collector := retrieval.NewCollector(chunkRepo, embeddingProvider)
	retriever := retrieval.NewRetriever(collector, reranker, twoTier, retrieval.Params{
		FusionAlpha:      cfg.Retrieval.FusionAlpha,
		UsagePenaltyRate: cfg.Retrieval.UsagePenaltyRate,
		MMRLambdaFinal:   cfg.Retrieval.MMRLambdaFinal,
		MMRLambdaMid:     cfg.Retrieval.MMRLambdaMid,
		RerankTopK:       cfg.Retrieval.RerankTopK,
	}, sysLogger)

	// 5. Session, Guards and Council
	sessionState := novelty.NewSessionState()
	guard := novelty.NewGuard(sessionState, twoTier, embeddingProvider, chunkRepo, sysLogger).
		WithThresholds(
			cfg.Generation.SessionThreshold,
			cfg.Generation.HistoryThreshold,
			cfg.Generation.GroundingThreshold,
		)

	orchestrator := generation.NewOrchestrator(llmProvider, generation.AgentModels{
		Drafter:   cfg.Ai.DrafterModel,
		Reviewer:  cfg.Ai.ReviewerModel,
		Alternate: cfg.Ai.AlternateModel,
		Chairman:  cfg.Ai.ChairmanModel,
		Default:   cfg.Ai.DefaultModel,
	}, guard, cfg.Generation.MaxAttempts, sysLogger)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.QuestionAcceptedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.QuestionAcceptedTopic,
		twoTier,
		embeddingProvider,
	)

	generationService := service.NewGenerationService(
		retriever,
		orchestrator,
		sessionState,
		guard,
		generationLock,
		publisherService,
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		GenerationController: controller.NewGenerationController(generationService),
		ConsumerService:      consumerService,
		Logger:               sysLogger,
	}
}
