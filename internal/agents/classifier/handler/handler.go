package handler

import (
	"context"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	"go-askbot/pkg/data"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
)

// ContextTurns is how much conversation history the classifier sees.
const ContextTurns = 4

var (
	RelevancePrompt = langChainPrompts.NewPromptTemplate(prompts.Relevance, []string{"Question", "Context"})
)

var synonyms = map[string]models.Category{
	"database": models.CategoryDatabase,
	"db":       models.CategoryDatabase,
	"sql":      models.CategoryDatabase,
	"search":   models.CategorySearch,
	"web":      models.CategorySearch,
	"both":     models.CategoryBoth,
	"none":     models.CategoryNone,
	"neither":  models.CategoryNone,
}

type Handler struct {
	oracle oracle.Oracle
}

func New(o oracle.Oracle) *Handler {
	return &Handler{
		oracle: o,
	}
}

// Classify routes a question. Any failure routes to CategoryNone.
func (h *Handler) Classify(ctx context.Context, question string, history buffer.History) models.Category {
	l := logger.For("classifier")
	convo := ""
	if digest := history.Digest(ContextTurns); digest != "" {
		convo = "Previous conversation:\n" + digest
	}
	prompt, err := RelevancePrompt.Format(map[string]any{"Question": question, "Context": convo})
	if err != nil {
		l.Error().Err(err).Msg("unable to render relevance prompt")
		return models.CategoryNone
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil {
		l.Warn().Err(err).Msg("classifier unavailable, treating the question as unrelated")
		return models.CategoryNone
	}
	category := ParseCategory(raw)
	l.Info().Str("category", string(category)).Msg("question classified")
	return category
}

// ParseCategory maps a free-text verdict onto a category; anything
// unrecognised is CategoryNone.
func ParseCategory(raw string) models.Category {
	if c, ok := synonyms[data.FirstWord(raw)]; ok {
		return c
	}
	return models.CategoryNone
}
