package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	"go-askbot/pkg/data"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/metrics"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
	"strconv"
	"strings"
)

const ContextTurns = 4

var (
	VerifierPrompt = langChainPrompts.NewPromptTemplate(prompts.Verifier,
		[]string{"Question", "Context", "Answers", "Prior"})

	ErrNoVerdict = errors.New("is_adequate missing or not a boolean")
)

type Handler struct {
	oracle oracle.Oracle
}

func New(o oracle.Oracle) *Handler {
	return &Handler{
		oracle: o,
	}
}

// Verify judges whether the sub-answers address the question. It never
// fails: an unusable oracle reply is an inadequate verdict.
func (h *Handler) Verify(ctx context.Context, question string, history buffer.History, results []models.CapabilityResult, rounds []models.IterationRecord) models.VerificationResult {
	l := logger.For("verifier").With().Int(logger.RoundField, len(rounds)+1).Logger()
	v := h.verify(ctx, question, history, results, rounds)
	metrics.RecordVerdict(v.IsAdequate)
	l.Info().Bool("adequate", v.IsAdequate).Str("reason", v.Reason).Msg("verification complete")
	return v
}

func (h *Handler) verify(ctx context.Context, question string, history buffer.History, results []models.CapabilityResult, rounds []models.IterationRecord) models.VerificationResult {
	l := logger.For("verifier")
	convo := ""
	if digest := history.Digest(ContextTurns); digest != "" {
		convo = "Previous conversation:\n" + digest
	}
	prompt, err := VerifierPrompt.Format(map[string]any{
		"Question": question,
		"Context":  convo,
		"Answers":  AnswersBlock(results),
		"Prior":    priorBlock(rounds),
	})
	if err != nil {
		l.Error().Err(err).Msg("unable to render verifier prompt")
		return models.VerificationResult{Reason: "verifier unavailable: " + err.Error()}
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil {
		l.Warn().Err(err).Msg("verifier unavailable")
		return models.VerificationResult{Reason: "verifier unavailable: " + err.Error()}
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		l.Warn().Err(err).Str("raw", raw).Msg("unable to parse verdict")
		return models.VerificationResult{Reason: strings.TrimSpace(raw)}
	}
	return v
}

// AnswersBlock renders sub-answers under one heading per domain.
func AnswersBlock(results []models.CapabilityResult) string {
	if len(results) == 0 {
		return "No capability answers were gathered."
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s answer (for %q):\n%s\n\n", strings.ToUpper(string(r.Domain)), r.Question, strings.TrimSpace(r.Answer))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func priorBlock(rounds []models.IterationRecord) string {
	if len(rounds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Earlier rounds were judged:\n")
	for _, r := range rounds {
		fmt.Fprintf(&b, "\t- round %d: adequate=%t, %s\n", r.Round, r.Verification.IsAdequate, r.Verification.Reason)
	}
	return b.String()
}

// ParseVerdict reads a verdict object from fenced or bare JSON. is_adequate
// may be a JSON boolean or a boolean string.
func ParseVerdict(raw string) (models.VerificationResult, error) {
	match, err := data.SanitizeAnswer(raw)
	if err != nil {
		return models.VerificationResult{}, fmt.Errorf("sanitize: %w", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(match), &res); err != nil {
		return models.VerificationResult{}, fmt.Errorf("unmarshal: %w", err)
	}

	v := models.VerificationResult{
		Reason:      text(res["reason"]),
		MissingInfo: text(res["missing_info"]),
		Suggestions: text(res["suggestions"]),
	}
	switch a := res["is_adequate"].(type) {
	case bool:
		v.IsAdequate = a
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(a)))
		if err != nil {
			return models.VerificationResult{}, ErrNoVerdict
		}
		v.IsAdequate = b
	default:
		return models.VerificationResult{}, ErrNoVerdict
	}
	return v, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
