package oracle

import (
	"context"
	"fmt"
	"go-askbot/pkg/metrics"
	"golang.org/x/time/rate"
	"time"
)

type reply struct {
	text string
	err  error
}

// WithTimeout bounds every completion. The call returns when the deadline
// passes even if the wrapped oracle ignores its context.
func WithTimeout(o Oracle, d time.Duration) Oracle {
	if d <= 0 {
		return o
	}
	return Func(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan reply, 1)
		go func() {
			text, err := o.Complete(ctx, prompt)
			done <- reply{text: text, err: err}
		}()

		select {
		case r := <-done:
			return r.text, r.err
		case <-ctx.Done():
			return "", fmt.Errorf("oracle: %w", ctx.Err())
		}
	})
}

// WithRateLimit waits on the limiter before each completion.
func WithRateLimit(o Oracle, limiter *rate.Limiter) Oracle {
	if limiter == nil {
		return o
	}
	return Func(func(ctx context.Context, prompt string) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
		return o.Complete(ctx, prompt)
	})
}

// Instrumented records call counts and latency.
func Instrumented(o Oracle) Oracle {
	return Func(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		text, err := o.Complete(ctx, prompt)
		metrics.RecordOracleCall(start, err)
		return text, err
	})
}
