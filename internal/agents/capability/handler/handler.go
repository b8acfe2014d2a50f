package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/rs/zerolog"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	"go-askbot/internal/tools"
	"go-askbot/pkg/data"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/metrics"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
	"strings"
)

var (
	ToolPlannerPrompt = langChainPrompts.NewPromptTemplate(prompts.ToolPlanner,
		[]string{"Purpose", "Tools", "Question", "Context", "Iteration", "Discovery", "History"})
	EvaluatorPrompt = langChainPrompts.NewPromptTemplate(prompts.ToolEvaluator,
		[]string{"Question", "Iteration", "MaxIterations", "QueryCount", "Repetitive", "History"})
	AnswerPrompt = langChainPrompts.NewPromptTemplate(prompts.CapabilityAnswer,
		[]string{"Purpose", "Question", "Context", "History"})
)

// ArgBuilder derives tool arguments from the sub-question and what the
// agent has gathered so far.
type ArgBuilder interface {
	Build(ctx context.Context, tool, question string, history []models.ExecutionRecord) (map[string]any, error)
}

// Domain scopes a capability agent to one evidence-gathering area.
type Domain struct {
	Name    models.Domain
	Purpose string
	// DiscoveryTool describes available data rather than answering the
	// question; it is never re-selected once it has succeeded.
	DiscoveryTool string
	// DefaultTool replaces unknown or suppressed selections.
	DefaultTool string
	// QueryTools are subject to the repetition and invocation caps.
	QueryTools []string
	Args       ArgBuilder
}

func (d Domain) isQuery(tool string) bool {
	for _, q := range d.QueryTools {
		if q == tool {
			return true
		}
	}
	return false
}

type Config struct {
	MaxIterations int
	// QueryCap is how many successful calls of one query tool force completion.
	QueryCap int
	// PrefixLen is how much of a query result is compared to detect repeats.
	PrefixLen int
}

func DefaultConfig() Config {
	return Config{MaxIterations: 3, QueryCap: 3, PrefixLen: 100}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxIterations < 1 {
		c.MaxIterations = def.MaxIterations
	}
	if c.QueryCap < 1 {
		c.QueryCap = def.QueryCap
	}
	if c.PrefixLen < 1 {
		c.PrefixLen = def.PrefixLen
	}
	return c
}

// State is owned by a single dispatch and discarded when it returns.
type State struct {
	Question       string
	Context        string
	IterationCount int
	MaxIterations  int
	History        []models.ExecutionRecord
	IsComplete     bool
	SelectedTool   string
	Phase          models.State
	ForcedBy       string
}

type Handler struct {
	oracle oracle.Oracle
	tools  tools.Registry
	domain Domain
	cfg    Config
}

func New(o oracle.Oracle, reg tools.Registry, d Domain, cfg Config) *Handler {
	return &Handler{oracle: o, tools: reg, domain: d, cfg: cfg.normalized()}
}

func (h *Handler) Domain() models.Domain {
	return h.domain.Name
}

// Run answers one sub-question. It always returns a result: tool and oracle
// failures end up in the execution history or in a degraded answer.
func (h *Handler) Run(ctx context.Context, question, digest string) models.CapabilityResult {
	st := &State{
		Question:      question,
		Context:       digest,
		MaxIterations: h.cfg.MaxIterations,
		Phase:         models.Planning,
	}
	h.loop(ctx, st)
	answer := h.answer(ctx, st)
	metrics.RecordDispatch(string(h.domain.Name), st.IterationCount, st.ForcedBy)

	return models.CapabilityResult{
		Domain:     h.domain.Name,
		Question:   question,
		Answer:     answer,
		History:    st.History,
		Iterations: st.IterationCount,
		ForcedBy:   st.ForcedBy,
	}
}

func (h *Handler) logger() zerolog.Logger {
	return logger.For("capability").With().Str(logger.DomainField, string(h.domain.Name)).Logger()
}

func (h *Handler) loop(ctx context.Context, st *State) {
	l := h.logger()
	descriptors, err := h.tools.ListTools(ctx)
	if err != nil {
		l.Warn().Err(err).Msg("unable to list tools, falling back to the default tool")
	}

	for !st.IsComplete {
		st.Phase = models.Planning
		st.SelectedTool = h.plan(ctx, st, descriptors)

		st.Phase = models.Executing
		rec := h.execute(ctx, st)
		st.History = append(st.History, rec)
		l.Info().Int(logger.IterationField, rec.Iteration).Str(logger.ToolField, rec.Tool).Bool("error", rec.IsError).Msg("tool executed")

		st.Phase = models.Evaluating
		h.evaluate(ctx, st)
	}
	st.Phase = models.Complete
}

func (h *Handler) plan(ctx context.Context, st *State, descriptors []models.ToolDescriptor) string {
	l := h.logger()
	known := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		known[d.Name] = true
	}

	discovery := ""
	if h.domain.DiscoveryTool != "" {
		discovery = fmt.Sprintf("%s already executed: %t", h.domain.DiscoveryTool, hasResult(st.History, h.domain.DiscoveryTool))
	}
	toolsJSON, _ := json.MarshalIndent(descriptors, "", "  ")
	prompt, err := ToolPlannerPrompt.Format(map[string]any{
		"Purpose":   h.domain.Purpose,
		"Tools":     string(toolsJSON),
		"Question":  st.Question,
		"Context":   contextBlock(st.Context),
		"Iteration": st.IterationCount + 1,
		"Discovery": discovery,
		"History":   historyBlock(st.History),
	})
	if err != nil {
		l.Error().Err(err).Msg("unable to render tool planner prompt")
		return h.domain.DefaultTool
	}

	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil {
		l.Warn().Err(err).Msg("tool planner unavailable, using the default tool")
		return h.domain.DefaultTool
	}
	choice := h.selectTool(parseTool(raw), known, st.History)
	l.Debug().Str("raw", raw).Str(logger.ToolField, choice).Msg("tool selected")
	return choice
}

// parseTool normalises an oracle reply to a candidate tool name; anything
// that is not a single token yields "".
func parseTool(raw string) string {
	s := strings.ToLower(data.StripFences(raw))
	s = strings.Trim(s, " \t\r\n\"'`*.,:;!?()[]")
	if strings.ContainsAny(s, " \t\r\n") {
		return ""
	}
	return s
}

func (h *Handler) selectTool(choice string, known map[string]bool, history []models.ExecutionRecord) string {
	l := h.logger()
	if choice != "" && choice == h.domain.DiscoveryTool && hasResult(history, choice) {
		l.Warn().Str(logger.ToolField, choice).Msg("discovery result already available, overriding to the default tool")
		return h.domain.DefaultTool
	}
	if !known[choice] {
		l.Warn().Str(logger.ToolField, choice).Msg("invalid tool selection, using the default tool")
		return h.domain.DefaultTool
	}
	return choice
}

func (h *Handler) execute(ctx context.Context, st *State) models.ExecutionRecord {
	rec := models.ExecutionRecord{Tool: st.SelectedTool, Iteration: st.IterationCount + 1}

	args := map[string]any{"query": st.Question}
	var err error
	if h.domain.Args != nil {
		args, err = h.domain.Args.Build(ctx, st.SelectedTool, st.Question, st.History)
	}
	var out string
	if err == nil {
		out, err = h.tools.Call(ctx, st.SelectedTool, args)
	}
	if err != nil {
		l := h.logger()
		l.Error().Err(err).Str(logger.ToolField, st.SelectedTool).Msg("tool execution failed")
		rec.IsError = true
		rec.Result = "Tool execution failed: " + err.Error()
		return rec
	}
	rec.Result = strings.TrimSpace(out)
	return rec
}

func (h *Handler) answer(ctx context.Context, st *State) string {
	l := h.logger()
	prompt, err := AnswerPrompt.Format(map[string]any{
		"Purpose":  h.domain.Purpose,
		"Question": st.Question,
		"Context":  contextBlock(st.Context),
		"History":  historyBlock(st.History),
	})
	if err != nil {
		l.Error().Err(err).Msg("unable to render answer prompt")
		return degradedAnswer(st)
	}
	raw, err := h.oracle.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		l.Warn().Err(err).Msg("answer generation unavailable, returning raw results")
		return degradedAnswer(st)
	}
	return strings.TrimSpace(raw)
}

func degradedAnswer(st *State) string {
	var ok []models.ExecutionRecord
	var last models.ExecutionRecord
	for _, r := range st.History {
		if r.IsError {
			last = r
			continue
		}
		ok = append(ok, r)
	}
	switch {
	case len(st.History) == 0:
		return fmt.Sprintf("No results were gathered for %q.", st.Question)
	case len(ok) == 0:
		return fmt.Sprintf("All %d tool calls failed for %q. Last error: %s", len(st.History), st.Question, last.Result)
	}
	return fmt.Sprintf("Raw results for %q:\n%s", st.Question, historyBlock(ok))
}

func hasResult(history []models.ExecutionRecord, tool string) bool {
	for _, r := range history {
		if r.Tool == tool && !r.IsError {
			return true
		}
	}
	return false
}

const maxPromptResult = 4000

func historyBlock(history []models.ExecutionRecord) string {
	if len(history) == 0 {
		return "No previous tool executions."
	}
	var b strings.Builder
	b.WriteString("Previous tool executions:\n")
	for i, r := range history {
		status := ""
		if r.IsError {
			status = " (error)"
		}
		result := r.Result
		if runes := []rune(result); len(runes) > maxPromptResult {
			result = string(runes[:maxPromptResult]) + "..."
		}
		fmt.Fprintf(&b, "Step %d: %s%s\n%s\n\n", i+1, r.Tool, status, result)
	}
	return strings.TrimRight(b.String(), "\n")
}

func contextBlock(digest string) string {
	if strings.TrimSpace(digest) == "" {
		return ""
	}
	return "Previous conversation:\n" + digest
}
