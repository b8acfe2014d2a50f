package orchestrator

import (
	"context"
	"errors"
	"fmt"
	protoactor "github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	capability "go-askbot/internal/agents/capability/actor"
	"go-askbot/internal/agents/capability/domain"
	capabilityHandler "go-askbot/internal/agents/capability/handler"
	classifier "go-askbot/internal/agents/classifier/handler"
	planner "go-askbot/internal/agents/planner/handler"
	synthesizer "go-askbot/internal/agents/synthesizer/handler"
	verifier "go-askbot/internal/agents/verifier/handler"
	"go-askbot/internal/tools"
	"go-askbot/internal/tools/sqldb"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/messages"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/oracle/oracletest"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	classifyMarker = "specializes in routing questions"
	directMarker   = "You are a witty assistant"
	planMarker     = "specializes in planning"
	verifyMarker   = "specializes in reviewing answers"
	synthMarker    = "specializes in writing final answers"
	toolMarker     = "specializes in choosing tools"
	evalMarker     = "specializes in evaluating tool results"
	answerMarker   = "Write the answer to the task from the tool results"
)

// fakeDispatcher answers every request with the round it was called in.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls [][]messages.Dispatch
}

func (f *fakeDispatcher) Dispatch(_ context.Context, reqs []messages.Dispatch) []models.CapabilityResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reqs)
	res := make([]models.CapabilityResult, len(reqs))
	for i, r := range reqs {
		res[i] = models.CapabilityResult{
			Domain:   r.Domain,
			Question: r.Question,
			Answer:   fmt.Sprintf("%s answer from round %d", r.Domain, len(f.calls)),
		}
	}
	return res
}

func newOrchestrator(o oracle.Oracle, d Dispatcher, cfg Config) *Orchestrator {
	return New(classifier.New(o), planner.New(o), d, verifier.New(o), synthesizer.New(o), cfg)
}

func TestAsk_UnrelatedQuestion(t *testing.T) {
	o := oracletest.New().
		On(classifyMarker, "none").
		On(directMarker, "I'd check a window, not a database.")
	d := &fakeDispatcher{}
	history := buffer.New().AppendExchange("hi", "hello")

	st := newOrchestrator(o, d, DefaultConfig()).Ask(context.Background(), "What's the weather today?", history)

	assert.Equal(t, models.CategoryNone, st.Category)
	assert.Equal(t, "I'd check a window, not a database.", st.FinalAnswer)
	assert.Empty(t, st.Iterations)
	assert.Empty(t, d.calls)
	assert.Zero(t, o.Calls(planMarker))
	require.Equal(t, history.Len()+2, st.History.Len())
	last := st.History.Last(2)
	assert.Equal(t, models.Turn{Role: models.User, Content: "What's the weather today?"}, last[0])
	assert.Equal(t, models.Turn{Role: models.Assistant, Content: st.FinalAnswer}, last[1])
	assert.Equal(t, 2, history.Len())
}

func TestAsk_RetriesUntilAdequate(t *testing.T) {
	o := oracletest.New().
		On(classifyMarker, "database").
		On(planMarker, `{"database": "list customers", "search": ""}`).
		On(verifyMarker,
			`{"is_adequate": false, "reason": "missing emails"}`,
			`{"is_adequate": false, "reason": "still missing emails"}`,
			`{"is_adequate": true, "reason": "complete"}`).
		Fail(synthMarker, errors.New("down"))
	d := &fakeDispatcher{}

	st := newOrchestrator(o, d, DefaultConfig()).Ask(context.Background(), "List all customers with emails", buffer.New())

	assert.Equal(t, 2, st.RetryCount)
	require.Len(t, st.Iterations, 3)
	for i, it := range st.Iterations {
		assert.Equal(t, i+1, it.Round)
		assert.Equal(t, "list customers", it.Plan.Database)
	}
	assert.True(t, st.Iterations[2].Verification.IsAdequate)
	assert.Contains(t, st.FinalAnswer, "database answer from round 3")
	assert.Equal(t, 2, st.History.Len())

	// the search domain was never routed
	for _, reqs := range d.calls {
		require.Len(t, reqs, 1)
		assert.Equal(t, models.Database, reqs[0].Domain)
	}

	// replanning sees the verifier's feedback
	var planPrompts []string
	for _, p := range o.Prompts() {
		if strings.Contains(p, planMarker) {
			planPrompts = append(planPrompts, p)
		}
	}
	require.Len(t, planPrompts, 3)
	assert.NotContains(t, planPrompts[0], "missing emails")
	assert.Contains(t, planPrompts[1], "missing emails")
	assert.Contains(t, planPrompts[2], "still missing emails")
}

func TestAsk_RetriesAreBounded(t *testing.T) {
	for _, retries := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprint(retries), func(t *testing.T) {
			o := oracletest.New().
				On(classifyMarker, "both").
				On(planMarker, "not json at all").
				On(verifyMarker, `{"is_adequate": false, "reason": "never good enough"}`).
				On(synthMarker, "best effort")
			d := &fakeDispatcher{}
			cfg := DefaultConfig()
			cfg.MaxRetries = retries

			st := newOrchestrator(o, d, cfg).Ask(context.Background(), "q", buffer.New())

			assert.Equal(t, retries, st.RetryCount)
			assert.Len(t, st.Iterations, retries+1)
			assert.Equal(t, "best effort", st.FinalAnswer)
			// fallback plan routes the original question to both domains
			for _, reqs := range d.calls {
				require.Len(t, reqs, 2)
				assert.Equal(t, "q", reqs[0].Question)
			}
		})
	}
}

func TestAsk_OracleDown(t *testing.T) {
	o := oracletest.New()
	st := newOrchestrator(o, &fakeDispatcher{}, DefaultConfig()).Ask(context.Background(), "anything", buffer.New())

	assert.Equal(t, models.CategoryNone, st.Category)
	assert.NotEmpty(t, st.FinalAnswer)
}

func TestAsk_ToolsAlwaysFail(t *testing.T) {
	broken := func(name string) tools.Func {
		return tools.Func{
			Desc: models.ToolDescriptor{Name: name},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				return "", errors.New("connection refused")
			},
		}
	}
	reg := tools.NewLocal(broken(sqldb.ListTablesTool), broken(sqldb.QuerySQLTool))
	o := oracletest.New().
		On(classifyMarker, "database").
		On(planMarker, `{"database": "count customers", "search": ""}`).
		On(toolMarker, "query_sql").
		On(evalMarker, "incomplete").
		Fail(answerMarker, errors.New("down")).
		On(verifyMarker, `{"is_adequate": true, "reason": "explains the outage"}`).
		Fail(synthMarker, errors.New("down"))
	agent := capabilityHandler.New(o, reg, domain.Database(o, reg), capabilityHandler.DefaultConfig())
	d := capability.NewDispatcher(protoactor.NewActorSystem().Root, 5*time.Second, agent)

	st := newOrchestrator(o, d, DefaultConfig()).Ask(context.Background(), "How many customers?", buffer.New())

	require.Len(t, st.Results, 1)
	res := st.Results[0]
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, capabilityHandler.ForcedMaxIterations, res.ForcedBy)
	for _, r := range res.History {
		assert.True(t, r.IsError)
	}
	assert.NotEmpty(t, st.FinalAnswer)
	assert.Contains(t, st.FinalAnswer, "tool calls failed")
}
