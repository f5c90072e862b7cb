package bootstrap

import (
	"context"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/config"
	"github.com/ruuig/tienda-online-sub002/internal/controller"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/implementation"
	"github.com/ruuig/tienda-online-sub002/internal/repository/indexstore"
	"github.com/ruuig/tienda-online-sub002/internal/repository/memory"
	"github.com/ruuig/tienda-online-sub002/internal/repository/redisstore"
	"github.com/ruuig/tienda-online-sub002/internal/repository/unitofwork"
	"github.com/ruuig/tienda-online-sub002/internal/service"
	"github.com/ruuig/tienda-online-sub002/pkg/cart"
	"github.com/ruuig/tienda-online-sub002/pkg/catalog"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"
	embeddingFactory "github.com/ruuig/tienda-online-sub002/pkg/embedding/factory"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	"github.com/ruuig/tienda-online-sub002/pkg/intent"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	llmFactory "github.com/ruuig/tienda-online-sub002/pkg/llm/factory"
	pktNats "github.com/ruuig/tienda-online-sub002/pkg/nats"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"
	"github.com/ruuig/tienda-online-sub002/pkg/rag/prompt"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	RagController       controller.IRagController

	// Services (also driven directly by assistantctl)
	AssistantService service.IAssistantService
	RagService       service.IRagService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger *logger.ZapLogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx := context.Background()

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	ragLogger := logger.NewIsolatedLogger(cfg.App.RagLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Job queue for single-document indexing
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Providers. A provider that cannot be configured is replaced by one
	// that reports the configuration error on every call.
	var embedder embedding.EmbeddingProvider
	embedder, err := embeddingFactory.NewEmbeddingProvider(ctx, embeddingFactory.Config{
		Provider:      cfg.Ai.EmbeddingProvider,
		Model:         cfg.Ai.EmbeddingModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		JinaAPIKey:    cfg.Keys.Jina,
	})
	if err != nil {
		sysLogger.Error("BOOTSTRAP", "Embedding provider unavailable", map[string]interface{}{
			"provider": cfg.Ai.EmbeddingProvider,
			"error":    err.Error(),
		})
		embedder = embedding.Unavailable{Err: err}
	} else {
		sysLogger.Info("BOOTSTRAP", "Using embedding provider", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})
	}
	embedder = embedding.WithRetry(embedder, sysLogger)

	var llmProvider llm.LLMProvider
	llmProvider, err = llmFactory.NewLLMProvider(ctx, llmFactory.Config{
		Provider:       cfg.Ai.LLMProvider,
		Model:          cfg.Ai.LLMModel,
		OllamaBaseURL:  cfg.Ai.OllamaBaseURL,
		HuggingFaceURL: cfg.Ai.HuggingFaceURL,
		HuggingFaceKey: cfg.Keys.HuggingFace,
		GeminiAPIKey:   cfg.Keys.GoogleGemini,
	})
	if err != nil {
		sysLogger.Error("BOOTSTRAP", "LLM provider unavailable", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"error":    err.Error(),
		})
		llmProvider = llm.Unavailable{Err: err}
	} else {
		sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"model":    cfg.Ai.LLMModel,
		})
	}
	llmProvider = llm.WithRetry(llmProvider, sysLogger)

	// 4. Event bus
	var eventPublisher events.Publisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS publisher unavailable, events are dropped", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "NATS subscriber unavailable, store events are ignored", map[string]interface{}{"error": err.Error()})
		natsSub = nil
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// 5. Stores
	conversations := newConversationStore(cfg, sysLogger, c)
	products := implementation.NewProductRepository(db)

	var snapshots vectorindex.SnapshotStore
	if cfg.Assistant.PersistIndex {
		snapshots = indexstore.NewSnapshotStore(uowFactory)
	}

	// 6. Assistant core
	index := vectorindex.NewIndex(embedder, implementation.NewDocumentRepository(db), snapshots, sysLogger, vectorindex.Config{
		ChunkSize:    cfg.Assistant.ChunkSize,
		ChunkOverlap: cfg.Assistant.ChunkOverlap,
	})
	orchestrator := rag.NewOrchestrator(
		index,
		embedder,
		llmProvider,
		prompt.NewGroundingBuilder(cfg.Assistant.MaxContextChars),
		cfg.Assistant.TopK,
		sysLogger,
		ragLogger,
	)

	var classifier intent.Classifier = intent.NewKeywordClassifier()
	if cfg.Ai.IntentClassifier == "llm" {
		classifier = intent.NewLLMClassifier(llmProvider, sysLogger)
	}

	composer := catalog.NewComposer(
		catalog.NewSearcher(products, sysLogger),
		llmProvider,
		cfg.Assistant.ProductLimit,
		cfg.Assistant.HistoryWindow,
		sysLogger,
	)
	engine := cart.NewEngine(conversations, products, service.NewOrderPublisher(eventPublisher), cart.DefaultCatalogTTL, sysLogger)

	// 7. Services
	publisherService := service.NewPublisherService(cfg.App.IndexingTopic, pubSub)
	ragService := service.NewRagService(uowFactory, index, orchestrator, publisherService, eventPublisher, sysLogger)
	assistantService := service.NewAssistantService(engine, classifier, composer, orchestrator, cfg.Assistant.HistoryWindow, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.IndexingTopic,
		ragService,
		publisherService,
		engine,
		natsSub,
		sysLogger,
	)

	// 8. Controllers
	c.AssistantController = controller.NewAssistantController(assistantService, ragService, cfg.Keys.JwtSecret, sysLogger)
	c.RagController = controller.NewRagController(ragService, cfg.Keys.JwtSecret)
	c.AssistantService = assistantService
	c.RagService = ragService
	c.ConsumerService = consumerService

	return c
}

func newConversationStore(cfg *config.Config, log logger.ILogger, c *Container) contract.ConversationRepository {
	if cfg.Assistant.ConversationStore != "redis" {
		return memory.NewConversationRepository(cfg.Assistant.ConversationTTL, cfg.Assistant.ReaperInterval)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, keeping conversations in memory", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return memory.NewConversationRepository(cfg.Assistant.ConversationTTL, cfg.Assistant.ReaperInterval)
	}

	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return redisstore.NewConversationRepository(rdb, cfg.Assistant.ConversationTTL)
}

// Close releases bus and store connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
