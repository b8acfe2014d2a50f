package app

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-askbot/internal/config"
	"go-askbot/internal/tools/sqldb"
	"go-askbot/internal/tools/websearch"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle/oracletest"
	"testing"
	"time"
)

func testConfig() *config.Config {
	return &config.Config{
		OracleBackend:    config.BackendOpenAI,
		OpenAIKey:        "sk-test",
		OpenAIModel:      "gpt-4o-mini",
		OracleTimeout:    time.Second,
		ToolTimeout:      time.Second,
		DispatchTimeout:  5 * time.Second,
		MaxIterations:    3,
		MaxRetries:       1,
		QueryToolCap:     3,
		DBDriver:         sqldb.DialectSQLite,
		DBDSN:            ":memory:",
		SearchMaxResults: 3,
	}
}

func TestNewOracle(t *testing.T) {
	cfg := testConfig()
	o, err := NewOracle(cfg)
	require.NoError(t, err)
	assert.NotNil(t, o)

	cfg.OracleBackend = config.BackendLangChain
	cfg.OracleRPS = 2
	o, err = NewOracle(cfg)
	require.NoError(t, err)
	assert.NotNil(t, o)

	cfg.OracleBackend = "mystery"
	_, err = NewOracle(cfg)
	assert.Error(t, err)
}

func TestNewTools_Local(t *testing.T) {
	reg, closer, err := NewTools(testConfig())
	require.NoError(t, err)
	defer closer()

	ds, err := reg.ListTools(context.Background())
	require.NoError(t, err)
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{
		sqldb.ListTablesTool, sqldb.QuerySQLTool,
		websearch.WebSearchTool, websearch.NewsSearchTool, websearch.FetchPageTool,
	}, names)
}

func TestNewTools_Remote(t *testing.T) {
	cfg := testConfig()
	cfg.ToolsURL = "http://tools.internal:8080"
	reg, closer, err := NewTools(cfg)
	require.NoError(t, err)
	assert.NoError(t, closer())
	assert.NotNil(t, reg)
}

func TestNewTools_BadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "mysql"
	_, _, err := NewTools(cfg)
	assert.Error(t, err)
}

func TestBuild_AnswersFromDatabase(t *testing.T) {
	reg, closer, err := NewTools(testConfig())
	require.NoError(t, err)
	defer closer()

	o := oracletest.New().
		On("specializes in routing questions", "database").
		On("specializes in planning", `{"database": "select one", "search": ""}`).
		On("specializes in choosing tools", "query_sql").
		On("specializes in SQL", "SELECT 1 AS one").
		On("specializes in evaluating tool results", "complete").
		On("Write the answer to the task from the tool results", "The value is 1.").
		On("specializes in reviewing answers", `{"is_adequate": true, "reason": "ok"}`).
		On("specializes in writing final answers", "One.")
	a := Build(o, reg, testConfig())
	defer a.Close()

	st := a.Orchestrator.Ask(context.Background(), "What is one?", buffer.New())

	assert.Equal(t, "One.", st.FinalAnswer)
	assert.Equal(t, models.CategoryDatabase, st.Category)
	require.Len(t, st.Results, 1)
	require.Len(t, st.Results[0].History, 1)
	assert.Contains(t, st.Results[0].History[0].Result, "Result: [(1)]")
}

func TestClose(t *testing.T) {
	a := Build(oracletest.New(), nil, testConfig())
	calls := 0
	a.closers = []func() error{
		func() error { calls++; return nil },
		func() error { calls++; return errors.New("db busy") },
	}

	err := a.Close()

	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "db busy")
}
