package oracle

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
	"testing"
	"time"
)

func TestChain_Complete(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"  database \n"})
	c := NewChain(llm)

	got, err := c.Complete(context.Background(), "Classify: show me all users")
	require.NoError(t, err)
	assert.Equal(t, "database", got)
}

func TestChain_CompletePassesTemplateSyntaxThrough(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"ok"})
	c := NewChain(llm)

	_, err := c.Complete(context.Background(), `answer in {"is_adequate": true} form`)
	assert.NoError(t, err)
}

func TestWithTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocking := Func(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := WithTimeout(blocking, 20*time.Millisecond)

	start := time.Now()
	_, err := o.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_ReturnsReply(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := WithTimeout(Func(func(ctx context.Context, prompt string) (string, error) {
		return "pong", nil
	}), time.Second)

	got, err := o.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestWithTimeout_Disabled(t *testing.T) {
	inner := Func(func(ctx context.Context, prompt string) (string, error) { return prompt, nil })
	o := WithTimeout(inner, 0)

	got, err := o.Complete(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, "same", got)
}

func TestWithRateLimit(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "ok", nil
	})
	o := WithRateLimit(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	_, err := o.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = o.Complete(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestInstrumented_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	o := Instrumented(Func(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}))

	_, err := o.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
