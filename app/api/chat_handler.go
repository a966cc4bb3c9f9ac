package api

import (
	"errors"
	"log/slog"

	"docchat/app/agent"
	"docchat/retriever"
	"docchat/types"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler serves both query modes: grounded answering over selected
// documents and open-domain answering with no documents at all.
type ChatHandler struct {
	retriever *retriever.Retriever
	generator agent.Generator
	topK      int
	logger    *slog.Logger
}

func NewChatHandler(r *retriever.Retriever, g agent.Generator, topK int, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		retriever: r,
		generator: g,
		topK:      topK,
		logger:    logger,
	}
}

// HandleChat answers a question from the requested documents only.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	res, err := h.retriever.Retrieve(c.Context(), params.Question, params.DocIDs, h.topK)
	if err != nil {
		if errors.Is(err, retriever.ErrNoContext) {
			return ErrNotFound("none of the requested documents have stored content")
		}
		if errors.Is(err, retriever.ErrNoDocuments) {
			return ErrBadRequest()
		}
		return err
	}

	h.logger.Info("retrieved context",
		"docs", len(params.DocIDs), "chunks", len(res.Chunks), "skipped", len(res.Skipped))

	answer, err := h.generator.Generate(c.Context(), agent.GroundedPrompt(res.Context, params.Question))
	if err != nil {
		return err
	}

	return c.JSON(types.AnswerResponse{
		Answer:      answer,
		SkippedDocs: res.Skipped,
	})
}

// HandleAsk answers a question open-domain, with no grounding precondition.
func (h *ChatHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	answer, err := h.generator.Generate(c.Context(), agent.OpenPrompt(params.Question))
	if err != nil {
		return err
	}

	return c.JSON(types.AnswerResponse{Answer: answer})
}
