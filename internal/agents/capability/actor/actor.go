package actor

import (
	"context"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/messages"
	"go-askbot/pkg/models"
)

// Runner answers one sub-question for a single domain.
type Runner interface {
	Domain() models.Domain
	Run(ctx context.Context, question, digest string) models.CapabilityResult
}

// Capability is a single-use actor: it serves one Dispatch and stops.
type Capability struct {
	runner Runner
	state  models.State
}

func New(r Runner) func() actor.Actor {
	return func() actor.Actor {
		return &Capability{runner: r, state: models.Planning}
	}
}

func (agent *Capability) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{
		logger.ActorIDField:   ac.Self().GetId(),
		logger.AgentNameField: "capability",
		logger.DomainField:    string(agent.runner.Domain()),
	}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.Dispatch:
		l.Debug().Str(logger.RequestIDField, msg.RequestID.String()).Msgf("Dispatch received: %s", msg.Question)
		ctx := msg.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		res := agent.runner.Run(ctx, msg.Question, msg.Digest)
		agent.state = models.Complete
		ac.Respond(messages.DispatchResult{Result: res})
		ac.Stop(ac.Self())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}
