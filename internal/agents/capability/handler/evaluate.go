package handler

import (
	"context"
	"go-askbot/pkg/data"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/models"
	"strings"
)

const (
	ForcedMaxIterations = "max_iterations"
	ForcedRepetition    = "repetition"
	ForcedQueryCap      = "query_cap"
)

type usage struct {
	counts     map[string]int
	total      int
	repetitive bool
}

func (u usage) max() int {
	n := 0
	for _, c := range u.counts {
		if c > n {
			n = c
		}
	}
	return n
}

// inspect counts successful query executions and flags results whose
// normalised prefix was already produced by the same tool.
func inspect(history []models.ExecutionRecord, d Domain, prefixLen int) usage {
	u := usage{counts: map[string]int{}}
	seen := map[string]map[string]bool{}
	for _, r := range history {
		if r.IsError || !d.isQuery(r.Tool) {
			continue
		}
		u.counts[r.Tool]++
		u.total++

		p := prefix(r.Result, prefixLen)
		if seen[r.Tool] == nil {
			seen[r.Tool] = map[string]bool{}
		}
		if seen[r.Tool][p] {
			u.repetitive = true
		}
		seen[r.Tool][p] = true
	}
	return u
}

func prefix(s string, n int) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

// evaluate closes one cycle. The deterministic stop conditions are checked
// before the oracle is consulted and always win.
func (h *Handler) evaluate(ctx context.Context, st *State) {
	l := h.logger()
	st.IterationCount++
	u := inspect(st.History, h.domain, h.cfg.PrefixLen)

	if reason := h.forced(st, u); reason != "" {
		l.Info().Int(logger.IterationField, st.IterationCount).Str("forced_by", reason).Msg("forcing completion")
		st.ForcedBy = reason
		st.IsComplete = true
		return
	}
	st.IsComplete = h.vote(ctx, st, u)
}

func (h *Handler) forced(st *State, u usage) string {
	switch {
	case st.IterationCount >= st.MaxIterations:
		return ForcedMaxIterations
	case u.repetitive:
		return ForcedRepetition
	case u.max() >= h.cfg.QueryCap:
		return ForcedQueryCap
	}
	return ""
}

// vote asks the oracle whether the task is done. An unusable reply counts
// as incomplete; the iteration bound guarantees termination.
func (h *Handler) vote(ctx context.Context, st *State, u usage) bool {
	l := h.logger()
	prompt, err := EvaluatorPrompt.Format(map[string]any{
		"Question":      st.Question,
		"Iteration":     st.IterationCount,
		"MaxIterations": st.MaxIterations,
		"QueryCount":    u.total,
		"Repetitive":    u.repetitive,
		"History":       historyBlock(st.History),
	})
	if err != nil {
		l.Error().Err(err).Msg("unable to render evaluator prompt")
		return false
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil {
		l.Warn().Err(err).Msg("evaluator unavailable, continuing")
		return false
	}
	return data.FirstWord(raw) == "complete"
}
