// Package app assembles the agents, tools and oracle from configuration.
package app

import (
	"errors"
	"fmt"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	capability "go-askbot/internal/agents/capability/actor"
	"go-askbot/internal/agents/capability/domain"
	capabilityHandler "go-askbot/internal/agents/capability/handler"
	classifier "go-askbot/internal/agents/classifier/handler"
	"go-askbot/internal/agents/orchestrator"
	planner "go-askbot/internal/agents/planner/handler"
	synthesizer "go-askbot/internal/agents/synthesizer/handler"
	verifier "go-askbot/internal/agents/verifier/handler"
	"go-askbot/internal/config"
	"go-askbot/internal/tools"
	"go-askbot/internal/tools/sqldb"
	"go-askbot/internal/tools/websearch"
	"go-askbot/pkg/oracle"
	"golang.org/x/time/rate"
)

type App struct {
	Orchestrator *orchestrator.Orchestrator
	Tools        tools.Registry
	System       *actor.ActorSystem
	closers      []func() error
}

// New builds the oracle and tool registry described by cfg and wires them
// into the agents.
func New(cfg *config.Config) (*App, error) {
	o, err := NewOracle(cfg)
	if err != nil {
		return nil, err
	}
	reg, closer, err := NewTools(cfg)
	if err != nil {
		return nil, err
	}
	a := Build(o, reg, cfg)
	a.closers = append(a.closers, closer)
	return a, nil
}

// Build wires already constructed dependencies; tests use it with fakes.
func Build(o oracle.Oracle, reg tools.Registry, cfg *config.Config) *App {
	system := actor.NewActorSystem()
	capCfg := capabilityHandler.Config{
		MaxIterations: cfg.MaxIterations,
		QueryCap:      cfg.QueryToolCap,
		PrefixLen:     capabilityHandler.DefaultConfig().PrefixLen,
	}
	dispatcher := capability.NewDispatcher(system.Root, cfg.DispatchTimeout,
		capabilityHandler.New(o, reg, domain.Database(o, reg), capCfg),
		capabilityHandler.New(o, reg, domain.Search(cfg.SearchMaxResults), capCfg),
	)
	orch := orchestrator.New(
		classifier.New(o),
		planner.New(o),
		dispatcher,
		verifier.New(o),
		synthesizer.New(o),
		orchestrator.Config{MaxRetries: cfg.MaxRetries, ContextTurns: orchestrator.DefaultConfig().ContextTurns},
	)
	return &App{Orchestrator: orch, Tools: reg, System: system}
}

// NewOracle selects the backend and applies the timeout, rate limit and
// metrics wrappers.
func NewOracle(cfg *config.Config) (oracle.Oracle, error) {
	var o oracle.Oracle
	switch cfg.OracleBackend {
	case config.BackendOpenAI:
		o = oracle.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.BackendLangChain:
		chain, err := oracle.NewLangChain(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		o = chain
	default:
		return nil, fmt.Errorf("oracle: unknown backend %q", cfg.OracleBackend)
	}

	var limiter *rate.Limiter
	if cfg.OracleRPS > 0 {
		burst := cfg.OracleBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.OracleRPS), burst)
	}
	return oracle.Instrumented(oracle.WithTimeout(oracle.WithRateLimit(o, limiter), cfg.OracleTimeout)), nil
}

// NewTools returns the remote registry when TOOLS_URL is set, otherwise the
// in-process SQL and web search tools. The returned func releases them.
func NewTools(cfg *config.Config) (tools.Registry, func() error, error) {
	if cfg.ToolsURL != "" {
		log.Info().Str("url", cfg.ToolsURL).Msg("using remote tool registry")
		return tools.WithTimeout(tools.NewRemote(cfg.ToolsURL, nil), cfg.ToolTimeout), func() error { return nil }, nil
	}

	db, err := sqldb.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("tools: %w", err)
	}
	search := websearch.New(websearch.Config{
		SearchURL:  cfg.SearchBaseURL,
		NewsURL:    cfg.NewsBaseURL,
		NewsAPIKey: cfg.NewsAPIKey,
		MaxResults: cfg.SearchMaxResults,
	})
	local := tools.NewLocal(append(db.Tools(), search.Tools()...)...)
	return tools.WithTimeout(local, cfg.ToolTimeout), db.Close, nil
}

// Close stops the actor system and releases the tools.
func (a *App) Close() error {
	if a.System != nil {
		a.System.Shutdown()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
