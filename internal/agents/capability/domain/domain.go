// Package domain configures the two capability agents: database lookups and
// open-web search.
package domain

import (
	"context"
	"errors"
	"fmt"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
	"go-askbot/internal/agents/capability/handler"
	"go-askbot/internal/tools"
	"go-askbot/internal/tools/sqldb"
	"go-askbot/internal/tools/websearch"
	"go-askbot/pkg/data"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle"
	"go-askbot/pkg/prompts"
	"regexp"
	"strings"
)

var (
	SQLPrompt = langChainPrompts.NewPromptTemplate(prompts.SQLGenerator, []string{"Schema", "Question"})

	ErrNoSQL = errors.New("no SQL generated")
	ErrNoURL = errors.New("no URL found in previous search results")

	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	createRe  = regexp.MustCompile(`(?is)CREATE TABLE.*?;`)
	urlRe     = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
)

func Database(o oracle.Oracle, reg tools.Registry) handler.Domain {
	return handler.Domain{
		Name:          models.Database,
		Purpose:       "database queries",
		DiscoveryTool: sqldb.ListTablesTool,
		DefaultTool:   sqldb.QuerySQLTool,
		QueryTools:    []string{sqldb.QuerySQLTool},
		Args:          &sqlArgs{oracle: o, tools: reg},
	}
}

func Search(maxResults int) handler.Domain {
	return handler.Domain{
		Name:        models.Search,
		Purpose:     "web search",
		DefaultTool: websearch.WebSearchTool,
		QueryTools:  []string{websearch.WebSearchTool, websearch.NewsSearchTool},
		Args:        searchArgs{maxResults: maxResults},
	}
}

type sqlArgs struct {
	oracle oracle.Oracle
	tools  tools.Registry
}

func (a *sqlArgs) Build(ctx context.Context, tool, question string, history []models.ExecutionRecord) (map[string]any, error) {
	if tool != sqldb.QuerySQLTool {
		return map[string]any{}, nil
	}

	schema, ok := latest(history, sqldb.ListTablesTool)
	if !ok {
		// fetched for prompting only, the agent history stays untouched
		var err error
		schema, err = a.tools.Call(ctx, sqldb.ListTablesTool, map[string]any{})
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
	}

	prompt, err := SQLPrompt.Format(map[string]any{"Schema": CleanSchema(schema), "Question": question})
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}
	raw, err := a.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	query := data.StripFences(raw)
	if query == "" {
		return nil, ErrNoSQL
	}
	return map[string]any{"sql": query}, nil
}

// CleanSchema drops sample-row comments and keeps only the CREATE TABLE
// statements of a list_tables result.
func CleanSchema(schema string) string {
	stripped := commentRe.ReplaceAllString(schema, "")
	stmts := createRe.FindAllString(stripped, -1)
	if len(stmts) == 0 {
		return strings.TrimSpace(stripped)
	}
	return strings.Join(stmts, "\n\n")
}

type searchArgs struct {
	maxResults int
}

func (a searchArgs) Build(_ context.Context, tool, question string, history []models.ExecutionRecord) (map[string]any, error) {
	switch tool {
	case websearch.FetchPageTool:
		for i := len(history) - 1; i >= 0; i-- {
			r := history[i]
			if r.IsError || (r.Tool != websearch.WebSearchTool && r.Tool != websearch.NewsSearchTool) {
				continue
			}
			if u := urlRe.FindString(r.Result); u != "" {
				return map[string]any{"url": u}, nil
			}
			break
		}
		return nil, ErrNoURL
	case websearch.NewsSearchTool:
		return map[string]any{"query": question}, nil
	default:
		args := map[string]any{"query": question}
		if a.maxResults > 0 {
			args["num_results"] = a.maxResults
		}
		return args, nil
	}
}

func latest(history []models.ExecutionRecord, tool string) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Tool == tool && !history[i].IsError {
			return history[i].Result, true
		}
	}
	return "", false
}
