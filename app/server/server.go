package server

import (
	"context"
	"log"
	"log/slog"
	"os"

	"docchat/app/agent"
	"docchat/app/api"
	"docchat/chunker"
	"docchat/ingest"
	"docchat/model"
	"docchat/retriever"
	"docchat/store"
	"docchat/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    64 * 1024 * 1024,
}

type Server struct {
	cfg    types.Config
	logger *slog.Logger
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	chunkStore, err := s.buildStore(ctx)
	if err != nil {
		log.Fatal("error to connect to chunk store: ", err)
		return
	}

	splitter, err := chunker.New(s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("invalid chunking configuration: ", err)
		return
	}

	embedder := model.NewGeminiEmbedder(s.cfg.EmbedURL, s.cfg.EmbeddingModel, s.cfg.GeminiAPIKey)
	generator := agent.NewGeminiGenerator(s.cfg.GenerateURL, s.cfg.GenerationModel, s.cfg.GeminiAPIKey, s.cfg.MaxPromptTokens, s.logger)

	var (
		app      = fiber.New(config)
		pipeline = ingest.New(splitter, embedder, chunkStore, s.cfg.EmbedWorkers, s.logger)

		checkHandler    = api.NewCheckHandler()
		documentHandler = api.NewDocumentHandler(pipeline, s.cfg.UploadDir, s.logger)
		chatHandler     = api.NewChatHandler(
			retriever.New(chunkStore, embedder, s.logger), generator, s.cfg.TopK, s.logger)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/documents", documentHandler.HandleUpload)
	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/ask", chatHandler.HandleAsk)

	if err := app.Listen(s.cfg.ListenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

// buildStore connects to Postgres when PG_HOST is set and falls back to the
// in-memory store otherwise, so the service can run without a database in
// local development.
func (s *Server) buildStore(ctx context.Context) (store.ChunkStorer, error) {
	if os.Getenv("PG_HOST") == "" {
		s.logger.Warn("PG_HOST not set, using in-memory chunk store")
		return store.NewMemoryStore(), nil
	}

	pool, err := store.NewPostgresStore(ctx, types.PostgresDSN(), s.logger)
	if err != nil {
		return nil, err
	}
	if err := pool.Init(ctx); err != nil {
		return nil, err
	}
	return pool, nil
}
