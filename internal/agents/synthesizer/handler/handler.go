package handler

import (
	"context"
	"fmt"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	verifier "go-askbot/internal/agents/verifier/handler"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
	"strings"
)

const ContextTurns = 4

var (
	SynthesizerPrompt = langChainPrompts.NewPromptTemplate(prompts.Synthesizer, []string{"Question", "Context", "Answers"})
	DirectPrompt      = langChainPrompts.NewPromptTemplate(prompts.Direct, []string{"Context", "Question"})
)

const directFallback = "I can only help with questions about the database or things worth searching the web for, " +
	"and this one is outside both. Try asking about your data or a current topic."

type Handler struct {
	oracle oracle.Oracle
}

func New(o oracle.Oracle) *Handler {
	return &Handler{
		oracle: o,
	}
}

// Synthesize merges the sub-answers into the final answer. Without a
// usable oracle reply the sub-answers are returned under domain headings.
func (h *Handler) Synthesize(ctx context.Context, question string, results []models.CapabilityResult, history buffer.History) string {
	l := logger.For("synthesizer")
	prompt, err := SynthesizerPrompt.Format(map[string]any{
		"Question": question,
		"Context":  convo(history),
		"Answers":  verifier.AnswersBlock(results),
	})
	if err != nil {
		l.Error().Err(err).Msg("unable to render synthesizer prompt")
		return Combine(results)
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		l.Warn().Err(err).Msg("synthesizer unavailable, combining sub-answers")
		return Combine(results)
	}
	return strings.TrimSpace(raw)
}

// Direct replies to a question no capability can serve.
func (h *Handler) Direct(ctx context.Context, question string, history buffer.History) string {
	l := logger.For("synthesizer")
	prompt, err := DirectPrompt.Format(map[string]any{"Context": convo(history), "Question": question})
	if err != nil {
		l.Error().Err(err).Msg("unable to render direct prompt")
		return directFallback
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		l.Warn().Err(err).Msg("direct reply unavailable")
		return directFallback
	}
	return strings.TrimSpace(raw)
}

// Combine is the deterministic answer built from sub-answers alone.
func Combine(results []models.CapabilityResult) string {
	if len(results) == 0 {
		return "Sorry, I could not find any information to answer your question."
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s results:\n%s", heading(r.Domain), strings.TrimSpace(r.Answer)))
	}
	return strings.Join(parts, "\n\n")
}

func heading(d models.Domain) string {
	if d == "" {
		return "Other"
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

func convo(history buffer.History) string {
	if digest := history.Digest(ContextTurns); digest != "" {
		return "Previous conversation:\n" + digest
	}
	return ""
}
