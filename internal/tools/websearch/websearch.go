// Package websearch provides open-web tools: DuckDuckGo web search, NewsAPI
// news search and page text extraction.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go-askbot/internal/tools"
	"go-askbot/pkg/models"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	WebSearchTool  = "web_search"
	NewsSearchTool = "news_search"
	FetchPageTool  = "fetch_page"
)

var ErrNoNewsKey = errors.New("missing news api key")

type Config struct {
	SearchURL    string
	NewsURL      string
	NewsAPIKey   string
	MaxResults   int
	MaxPageChars int
	UserAgent    string
	Client       *http.Client
}

func (c Config) withDefaults() Config {
	if c.SearchURL == "" {
		c.SearchURL = "https://html.duckduckgo.com/html/"
	}
	if c.NewsURL == "" {
		c.NewsURL = "https://newsapi.org/v2/everything"
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	if c.MaxPageChars <= 0 {
		c.MaxPageChars = 4000
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; askbot/1.0)"
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c
}

type Searcher struct {
	cfg Config
}

func New(cfg Config) *Searcher {
	return &Searcher{cfg: cfg.withDefaults()}
}

type Result struct {
	Title   string
	URL     string
	Snippet string
}

func (s *Searcher) Tools() []tools.Tool {
	return []tools.Tool{
		tools.Func{
			Desc: models.ToolDescriptor{
				Name:        WebSearchTool,
				Description: "Perform a general web search and return titles, links and snippets.",
				Inputs:      []string{"query", "num_results"},
				Outputs:     []string{"results"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				q, err := tools.StringArg(args, "query")
				if err != nil {
					return "", err
				}
				return s.Web(ctx, q, tools.IntArg(args, "num_results", s.cfg.MaxResults))
			},
		},
		tools.Func{
			Desc: models.ToolDescriptor{
				Name:        NewsSearchTool,
				Description: "Search for the latest news and current events about a topic.",
				Inputs:      []string{"query"},
				Outputs:     []string{"articles"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				q, err := tools.StringArg(args, "query")
				if err != nil {
					return "", err
				}
				return s.News(ctx, q)
			},
		},
		tools.Func{
			Desc: models.ToolDescriptor{
				Name:        FetchPageTool,
				Description: "Extract the readable text content of a webpage.",
				Inputs:      []string{"url"},
				Outputs:     []string{"content"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				u, err := tools.StringArg(args, "url")
				if err != nil {
					return "", err
				}
				return s.Fetch(ctx, u)
			},
		},
	}
}

func (s *Searcher) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("http status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return resp.Body, nil
}

func (s *Searcher) Web(ctx context.Context, query string, n int) (string, error) {
	if n <= 0 || n > s.cfg.MaxResults {
		n = s.cfg.MaxResults
	}
	body, err := s.get(ctx, s.cfg.SearchURL+"?"+url.Values{"q": {query}}.Encode())
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	defer body.Close()

	results, err := ParseResults(body, n)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("No results found for '%s'.", query), nil
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Title + "\n" + r.URL + "\n" + r.Snippet
	}
	return strings.Join(parts, "\n\n"), nil
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (s *Searcher) News(ctx context.Context, query string) (string, error) {
	if s.cfg.NewsAPIKey == "" {
		return "", ErrNoNewsKey
	}
	params := url.Values{
		"q":        {query},
		"apiKey":   {s.cfg.NewsAPIKey},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {fmt.Sprint(s.cfg.MaxResults)},
	}
	body, err := s.get(ctx, s.cfg.NewsURL+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("news search: %w", err)
	}
	defer body.Close()

	var res newsResponse
	if err := json.NewDecoder(body).Decode(&res); err != nil {
		return "", fmt.Errorf("news search: unmarshal: %w", err)
	}
	if res.Status == "error" {
		return "", fmt.Errorf("news search: %s", res.Message)
	}
	if len(res.Articles) == 0 {
		return "No news articles found.", nil
	}
	parts := make([]string, 0, len(res.Articles))
	for i, a := range res.Articles {
		if i == s.cfg.MaxResults {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%s)\n%s\n%s", a.Title, a.Source.Name, a.URL, a.Description))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Searcher) Fetch(ctx context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("fetch page: invalid url %q", target)
	}
	body, err := s.get(ctx, u.String())
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer body.Close()

	text, err := ExtractText(body)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	if r := []rune(text); len(r) > s.cfg.MaxPageChars {
		text = string(r[:s.cfg.MaxPageChars]) + "..."
	}
	return text, nil
}
