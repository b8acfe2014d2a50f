package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go-askbot/pkg/models"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// CallRequest and CallResponse are the wire shapes of POST /tools/{name}.
type CallRequest struct {
	Arguments map[string]any `json:"arguments"`
}

type CallResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Remote is a Registry backed by another askbot instance's /tools endpoints.
type Remote struct {
	baseURL string
	client  *http.Client
}

func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (r *Remote) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	body, err := r.do(req)
	if err != nil {
		return nil, err
	}
	var res []models.ToolDescriptor
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return res, nil
}

func (r *Remote) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	payload, err := json.Marshal(CallRequest{Arguments: args})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/tools/"+url.PathEscape(name), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := r.do(req)
	if errors.Is(err, ErrUnknownTool) {
		return "", err
	}
	var res CallResponse
	if uerr := json.Unmarshal(body, &res); uerr != nil && err == nil {
		return "", fmt.Errorf("unmarshal: %w", uerr)
	}
	if res.Error != "" {
		return "", fmt.Errorf("tool %s: %s", name, res.Error)
	}
	if err != nil {
		return "", err
	}
	return res.Result, nil
}

func (r *Remote) do(req *http.Request) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return body, fmt.Errorf("%w: %s", ErrUnknownTool, req.URL.Path)
	}
	if resp.StatusCode >= 300 {
		return body, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return body, nil
}
