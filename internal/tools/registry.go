// Package tools is the capability tool registry: named tools with declared
// inputs and outputs that capability agents discover and call at runtime.
package tools

import (
	"context"
	"errors"
	"fmt"
	"go-askbot/pkg/metrics"
	"go-askbot/pkg/models"
	"sort"
	"strconv"
	"sync"
	"time"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrMissingArgument  = errors.New("missing argument")
	ErrStatementRefused = errors.New("only SELECT statements are allowed")
)

type Registry interface {
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

type Tool interface {
	Descriptor() models.ToolDescriptor
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Func turns a descriptor and a function into a Tool.
type Func struct {
	Desc models.ToolDescriptor
	Fn   func(ctx context.Context, args map[string]any) (string, error)
}

func (f Func) Descriptor() models.ToolDescriptor { return f.Desc }

func (f Func) Call(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}

// Local serves tools registered in process.
type Local struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewLocal(ts ...Tool) *Local {
	l := &Local{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		l.Register(t)
	}
	return l
}

func (l *Local) Register(t Tool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tools[t.Descriptor().Name] = t
}

func (l *Local) ListTools(_ context.Context) ([]models.ToolDescriptor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]models.ToolDescriptor, 0, len(l.tools))
	for _, t := range l.tools {
		res = append(res, t.Descriptor())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (l *Local) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	l.mu.RLock()
	t, ok := l.tools[name]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	out, err := t.Call(ctx, args)
	metrics.RecordToolCall(name, err)
	return out, err
}

type timeoutRegistry struct {
	Registry
	timeout time.Duration
}

// WithTimeout bounds every tool call; a timeout surfaces as the call's error.
// Call returns at the deadline even if the tool ignores its context.
func WithTimeout(r Registry, d time.Duration) Registry {
	if d <= 0 {
		return r
	}
	return &timeoutRegistry{Registry: r, timeout: d}
}

func (t *timeoutRegistry) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Registry.ListTools(ctx)
}

type callResult struct {
	out string
	err error
}

func (t *timeoutRegistry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		out, err := t.Registry.Call(ctx, name, args)
		done <- callResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tool %s timed out after %s: %w", name, t.timeout, r.err)
		}
		return r.out, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("tool %s timed out after %s: %w", name, t.timeout, ctx.Err())
	}
}

// StringArg returns a required, non-empty string argument.
func StringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return s, nil
}

// IntArg returns an optional integer argument. JSON numbers decode as
// float64, so both are accepted along with numeric strings.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
