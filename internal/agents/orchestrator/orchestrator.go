// Package orchestrator drives one question through classification, planning,
// capability dispatch and verification, retrying with verifier feedback
// until the answer is adequate or the retry budget is spent.
package orchestrator

import (
	"context"
	"github.com/google/uuid"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/messages"
	"go-askbot/pkg/metrics"
	"go-askbot/pkg/models"
)

type Classifier interface {
	Classify(ctx context.Context, question string, history buffer.History) models.Category
}

type Planner interface {
	Plan(ctx context.Context, question string, history buffer.History, category models.Category, rounds []models.IterationRecord) models.Plan
}

type Dispatcher interface {
	Dispatch(ctx context.Context, reqs []messages.Dispatch) []models.CapabilityResult
}

type Verifier interface {
	Verify(ctx context.Context, question string, history buffer.History, results []models.CapabilityResult, rounds []models.IterationRecord) models.VerificationResult
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, results []models.CapabilityResult, history buffer.History) string
	Direct(ctx context.Context, question string, history buffer.History) string
}

type Config struct {
	MaxRetries int
	// ContextTurns is how many history turns capability agents see.
	ContextTurns int
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, ContextTurns: 4}
}

// State is everything one Ask produced. History already includes the new
// question and answer.
type State struct {
	RequestID   uuid.UUID                 `json:"request_id"`
	Question    string                    `json:"question"`
	Category    models.Category           `json:"category"`
	History     buffer.History            `json:"-"`
	RetryCount  int                       `json:"retry_count"`
	MaxRetries  int                       `json:"max_retries"`
	Iterations  []models.IterationRecord  `json:"iterations"`
	Results     []models.CapabilityResult `json:"results"`
	FinalAnswer string                    `json:"final_answer"`
}

type Orchestrator struct {
	classifier  Classifier
	planner     Planner
	dispatcher  Dispatcher
	verifier    Verifier
	synthesizer Synthesizer
	cfg         Config
}

func New(c Classifier, p Planner, d Dispatcher, v Verifier, s Synthesizer, cfg Config) *Orchestrator {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = DefaultConfig().ContextTurns
	}
	return &Orchestrator{
		classifier:  c,
		planner:     p,
		dispatcher:  d,
		verifier:    v,
		synthesizer: s,
		cfg:         cfg,
	}
}

// Ask always produces a final answer; failures below it degrade the answer
// instead of surfacing as errors.
func (o *Orchestrator) Ask(ctx context.Context, question string, history buffer.History) *State {
	st := &State{
		RequestID:  uuid.New(),
		Question:   question,
		MaxRetries: o.cfg.MaxRetries,
	}
	l := logger.For("orchestrator").With().Str(logger.RequestIDField, st.RequestID.String()).Logger()

	st.Category = o.classifier.Classify(ctx, question, history)
	metrics.RecordRequest(string(st.Category))
	l.Info().Str("category", string(st.Category)).Msg("routing question")

	if st.Category == models.CategoryNone {
		st.FinalAnswer = o.synthesizer.Direct(ctx, question, history)
		st.History = history.AppendExchange(question, st.FinalAnswer)
		return st
	}

	digest := history.Digest(o.cfg.ContextTurns)
	for round := 1; ; round++ {
		rl := l.With().Int(logger.RoundField, round).Logger()
		plan := o.planner.Plan(ctx, question, history, st.Category, st.Iterations)
		results := o.dispatcher.Dispatch(ctx, requests(st.RequestID, plan, digest))
		verdict := o.verifier.Verify(ctx, question, history, results, st.Iterations)

		st.Iterations = append(st.Iterations, models.IterationRecord{
			Round:        round,
			Plan:         plan,
			Results:      results,
			Verification: verdict,
		})
		st.Results = results

		if verdict.IsAdequate {
			rl.Info().Msg("answer verified")
			break
		}
		if st.RetryCount >= st.MaxRetries {
			rl.Warn().Str("reason", verdict.Reason).Msg("retry budget spent, answering with what we have")
			break
		}
		if err := ctx.Err(); err != nil {
			rl.Warn().Err(err).Msg("request cancelled, answering with what we have")
			break
		}
		st.RetryCount++
		rl.Info().Str("reason", verdict.Reason).Int("retry", st.RetryCount).Msg("answer inadequate, replanning")
	}
	metrics.RecordRounds(len(st.Iterations))

	st.FinalAnswer = o.synthesizer.Synthesize(ctx, question, st.Results, history)
	st.History = history.AppendExchange(question, st.FinalAnswer)
	return st
}

func requests(id uuid.UUID, plan models.Plan, digest string) []messages.Dispatch {
	reqs := make([]messages.Dispatch, 0, len(models.Domains))
	for _, d := range models.Domains {
		if q := plan.For(d); q != "" {
			reqs = append(reqs, messages.Dispatch{RequestID: id, Domain: d, Question: q, Digest: digest})
		}
	}
	return reqs
}
