package main

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-askbot/internal/app"
	"go-askbot/internal/config"
	"go-askbot/internal/tools"
	"go-askbot/pkg/oracle/oracletest"
	"strings"
	"testing"
	"time"
)

func TestChat_KeepsHistory(t *testing.T) {
	o := oracletest.New().
		On("specializes in routing questions", "none").
		On("You are a witty assistant", "Ha!")
	cfg := &config.Config{MaxIterations: 3, MaxRetries: 1, QueryToolCap: 3, DispatchTimeout: time.Second}
	a := app.Build(o, tools.NewLocal(), cfg)
	in := strings.NewReader("tell me a joke\n\nanother one\nexit\nnever asked\n")
	var out bytes.Buffer

	err := chat(context.Background(), a, in, &out)

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Ha!"))
	prompts := o.Prompts()
	require.Len(t, prompts, 4)
	// the second classification sees the first exchange
	assert.Contains(t, prompts[2], "User: tell me a joke")
	assert.NotContains(t, out.String(), "never asked")
}
