package handler

import (
	"context"
	"encoding/json"
	"fmt"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	"go-askbot/pkg/data"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
	"strings"
)

const ContextTurns = 4

var (
	TaskPrompt = langChainPrompts.NewPromptTemplate(prompts.TaskPlanner,
		[]string{"Question", "Context", "Category", "Rounds", "Feedback"})
	FeedbackPrompt = langChainPrompts.NewPromptTemplate(prompts.PlannerFeedback,
		[]string{"Reason", "MissingInfo", "Suggestions"})
)

type Handler struct {
	oracle oracle.Oracle
}

func New(o oracle.Oracle) *Handler {
	return &Handler{
		oracle: o,
	}
}

// Plan splits the question into per-domain sub-questions. Only domains the
// category routes to are ever populated, and the result is never empty for
// a routable category.
func (h *Handler) Plan(ctx context.Context, question string, history buffer.History, category models.Category, rounds []models.IterationRecord) models.Plan {
	l := logger.For("planner").With().Int(logger.RoundField, len(rounds)+1).Logger()

	prompt, err := h.prompt(question, history, category, rounds)
	if err != nil {
		l.Error().Err(err).Msg("unable to render planner prompt")
		return Fallback(question, category)
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil {
		l.Warn().Err(err).Msg("planner unavailable, using the original question")
		return Fallback(question, category)
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		l.Warn().Err(err).Str("raw", raw).Msg("unable to parse plan, using the original question")
		return Fallback(question, category)
	}
	plan = Clamp(plan, question, category)
	l.Info().Str(string(models.Database), plan.Database).Str(string(models.Search), plan.Search).Bool("fallback", plan.Fallback).Msg("plan ready")
	return plan
}

func (h *Handler) prompt(question string, history buffer.History, category models.Category, rounds []models.IterationRecord) (string, error) {
	convo := ""
	if digest := history.Digest(ContextTurns); digest != "" {
		convo = "Previous conversation:\n" + digest
	}

	feedback := ""
	if n := len(rounds); n > 0 && !rounds[n-1].Verification.IsAdequate {
		v := rounds[n-1].Verification
		var err error
		feedback, err = FeedbackPrompt.Format(map[string]any{
			"Reason":      v.Reason,
			"MissingInfo": v.MissingInfo,
			"Suggestions": v.Suggestions,
		})
		if err != nil {
			return "", fmt.Errorf("format feedback: %w", err)
		}
	}

	return TaskPrompt.Format(map[string]any{
		"Question": question,
		"Context":  convo,
		"Category": string(category),
		"Rounds":   roundsBlock(rounds),
		"Feedback": feedback,
	})
}

func roundsBlock(rounds []models.IterationRecord) string {
	if len(rounds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPrevious rounds:\n")
	for _, r := range rounds {
		fmt.Fprintf(&b, "Round %d:\n", r.Round)
		for _, d := range models.Domains {
			if q := r.Plan.For(d); q != "" {
				fmt.Fprintf(&b, "\t- %s: %s\n", d, q)
			}
		}
		fmt.Fprintf(&b, "\t- adequate: %t, reason: %s\n", r.Verification.IsAdequate, r.Verification.Reason)
	}
	return b.String()
}

// ParsePlan extracts the sub-question object from an oracle reply.
func ParsePlan(raw string) (models.Plan, error) {
	match, err := data.SanitizeAnswer(raw)
	if err != nil {
		return models.Plan{}, fmt.Errorf("sanitize: %w", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(match), &res); err != nil {
		return models.Plan{}, fmt.Errorf("unmarshal: %w", err)
	}
	plan := models.Plan{}
	found := false
	for _, d := range models.Domains {
		v, ok := res[string(d)]
		if !ok {
			continue
		}
		found = true
		if s, ok := v.(string); ok {
			plan.Set(d, strings.TrimSpace(s))
		}
	}
	if !found {
		return models.Plan{}, fmt.Errorf("no sub-questions in %s", match)
	}
	return plan, nil
}

// Clamp drops sub-questions for domains the category does not route to and
// falls back when nothing is left.
func Clamp(p models.Plan, question string, category models.Category) models.Plan {
	out := models.Plan{Fallback: p.Fallback}
	for _, d := range models.Domains {
		if category.Needs(d) {
			out.Set(d, p.For(d))
		}
	}
	if out.Empty() {
		return Fallback(question, category)
	}
	return out
}

// Fallback uses the original question for every domain the category routes to.
func Fallback(question string, category models.Category) models.Plan {
	p := models.Plan{Fallback: true}
	for _, d := range models.Domains {
		if category.Needs(d) {
			p.Set(d, question)
		}
	}
	return p
}
