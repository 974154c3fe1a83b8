package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"aimsite/internal/ai"
	appsvc "aimsite/internal/app"
	"aimsite/internal/bootstrap"
	"aimsite/internal/cache"
	"aimsite/internal/platform/rabbitmq"
	"aimsite/internal/repository"
	"aimsite/internal/transport/http/handler"
	"aimsite/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)

	llmClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewEmbeddingClient(llmClient, ai.EmbeddingConfig{
		BaseURL:   app.Config.LLM.BaseURL,
		APIKey:    app.Config.LLM.APIKey,
		Model:     app.Config.LLM.EmbeddingModel,
		Dimension: app.Config.LLM.EmbeddingDimension,
	})
	chatConfig := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}

	processor := appsvc.NewDocumentProcessor(
		docRepo,
		chunkRepo,
		embedder,
		app.Config.RAG.ChunkSize,
		app.Config.RAG.ChunkOverlap,
		app.Config.RAG.EmbeddingBatchSize,
	)
	vectorSearch := appsvc.NewVectorSearch(
		chunkRepo,
		embedder,
		app.Config.RAG.SimilarityThreshold,
		app.Config.RAG.FallbackScanLimit,
	)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		publisher,
		historyCache,
		vectorSearch,
		llmClient,
		chatConfig,
		app.Config.LLM.MaxContextMessage,
		app.Config.RAG.TopK,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(docRepo, chunkRepo, processor)
	searchHandler := handler.NewSearchHandler(vectorSearch)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/messages/stream", chatHandler.StreamMessage)
	chatGroup.GET("/history", chatHandler.GetHistory)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret), middleware.RequireAdmin())
	adminGroup.POST("/documents", documentHandler.CreateDocument)
	adminGroup.POST("/documents/upload", documentHandler.UploadDocument)
	adminGroup.GET("/documents", documentHandler.ListDocuments)
	adminGroup.GET("/documents/:id", documentHandler.GetDocument)
	adminGroup.PUT("/documents/:id", documentHandler.UpdateDocument)
	adminGroup.DELETE("/documents/:id", documentHandler.DeleteDocument)
	adminGroup.POST("/documents/reprocess", documentHandler.ReprocessAll)
	adminGroup.POST("/search", searchHandler.Search)

	return router
}
