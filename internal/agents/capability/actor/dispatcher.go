package actor

import (
	"context"
	"fmt"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/messages"
	"go-askbot/pkg/models"
	"golang.org/x/sync/errgroup"
	"time"
)

const DefaultTimeout = 5 * time.Minute

// Dispatcher fans sub-questions out to one capability actor each and waits
// for all of them.
type Dispatcher struct {
	root    *actor.RootContext
	timeout time.Duration
	runners map[models.Domain]Runner
}

func NewDispatcher(root *actor.RootContext, timeout time.Duration, runners ...Runner) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{root: root, timeout: timeout, runners: make(map[models.Domain]Runner, len(runners))}
	for _, r := range runners {
		d.runners[r.Domain()] = r
	}
	return d
}

// Dispatch returns one result per request, in request order. Failures and
// timeouts come back as results with Err set.
func (d *Dispatcher) Dispatch(ctx context.Context, reqs []messages.Dispatch) []models.CapabilityResult {
	results := make([]models.CapabilityResult, len(reqs))
	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = d.dispatch(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) dispatch(ctx context.Context, req messages.Dispatch) models.CapabilityResult {
	l := log.With().Str(logger.RequestIDField, req.RequestID.String()).Str(logger.DomainField, string(req.Domain)).Logger()
	runner, ok := d.runners[req.Domain]
	if !ok {
		return Degraded(req, fmt.Errorf("no capability agent for domain %q", req.Domain))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req.Ctx = ctx

	pid := d.root.Spawn(actor.PropsFromProducer(New(runner)))
	res, err := d.root.RequestFuture(pid, req, d.timeout).Result()
	if err != nil {
		l.Error().Err(err).Msg("capability actor did not answer")
		d.root.Stop(pid)
		return Degraded(req, fmt.Errorf("dispatch: %w", err))
	}
	out, ok := res.(messages.DispatchResult)
	if !ok {
		return Degraded(req, fmt.Errorf("dispatch: unexpected reply %T", res))
	}
	return out.Result
}

// Degraded is the result reported for a dispatch that produced nothing.
func Degraded(req messages.Dispatch, err error) models.CapabilityResult {
	return models.CapabilityResult{
		Domain:   req.Domain,
		Question: req.Question,
		Answer:   fmt.Sprintf("The %s lookup failed: %v", req.Domain, err),
		Err:      err.Error(),
	}
}
