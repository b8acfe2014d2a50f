package tools

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-askbot/pkg/models"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func echoTool(name string) Func {
	return Func{
		Desc: models.ToolDescriptor{Name: name, Description: "echo", Inputs: []string{"text"}},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			return StringArg(args, "text")
		},
	}
}

func TestLocal(t *testing.T) {
	reg := NewLocal(echoTool("b_echo"), echoTool("a_echo"))
	ctx := context.Background()

	ds, err := reg.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "a_echo", ds[0].Name)

	out, err := reg.Call(ctx, "a_echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = reg.Call(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = reg.Call(ctx, "a_echo", map[string]any{})
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestWithTimeout(t *testing.T) {
	slow := Func{
		Desc: models.ToolDescriptor{Name: "slow"},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "late", nil
			}
		},
	}
	reg := WithTimeout(NewLocal(slow), 10*time.Millisecond)

	_, err := reg.Call(context.Background(), "slow", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}

func TestWithTimeout_ToolIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := Func{
		Desc: models.ToolDescriptor{Name: "stuck"},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			<-release
			return "too late", nil
		},
	}
	reg := WithTimeout(NewLocal(stuck), 10*time.Millisecond)

	start := time.Now()
	_, err := reg.Call(context.Background(), "stuck", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"a": 3, "b": float64(4), "c": "5", "d": "x"}
	assert.Equal(t, 3, IntArg(args, "a", 0))
	assert.Equal(t, 4, IntArg(args, "b", 0))
	assert.Equal(t, 5, IntArg(args, "c", 0))
	assert.Equal(t, 9, IntArg(args, "d", 9))
	assert.Equal(t, 7, IntArg(args, "missing", 7))
}

func TestRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tools":
			_ = json.NewEncoder(w).Encode([]models.ToolDescriptor{{Name: "query_sql", Inputs: []string{"sql"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/tools/query_sql":
			var req CallRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(CallResponse{Result: "ran " + req.Arguments["sql"].(string)})
		case r.Method == http.MethodPost && r.URL.Path == "/tools/broken":
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(CallResponse{Error: "database is down"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	reg := NewRemote(srv.URL+"/", nil)
	ctx := context.Background()

	ds, err := reg.ListTools(ctx)
	require.NoError(t, err)
	assert.Equal(t, "query_sql", ds[0].Name)

	out, err := reg.Call(ctx, "query_sql", map[string]any{"sql": "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "ran SELECT 1", out)

	_, err = reg.Call(ctx, "broken", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "database is down"))

	_, err = reg.Call(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}
