// Package oracle wraps the language model every reasoning step consults.
// Callers treat it as untrusted: replies are validated against a closed set
// or parsed with a fallback at each call site.
package oracle

import (
	"context"
	"errors"
	"fmt"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"strings"
)

type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var passthroughPrompt = prompts.NewPromptTemplate("{{.prompt}}", []string{"prompt"})

// Chain completes prompts through a langchaingo LLM chain. Prompts arrive
// already rendered, so the chain template only passes them through.
type Chain struct {
	chain chains.Chain
}

func NewChain(llm llms.Model) *Chain {
	return &Chain{chain: chains.NewLLMChain(llm, passthroughPrompt)}
}

func NewLangChain(token, model, baseURL string) (*Chain, error) {
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewChain(llm), nil
}

func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := chains.Call(ctx, c.chain, map[string]any{"prompt": prompt}, chains.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("call: %w", err)
	}
	text, ok := completion["text"].(string)
	if !ok {
		return "", errors.New("call: chain returned no text")
	}
	return strings.TrimSpace(text), nil
}

// OpenAI talks to the chat completions API directly.
type OpenAI struct {
	client *goopenai.Client
	model  string
}

func NewOpenAI(token, model, baseURL string) *OpenAI {
	cfg := goopenai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
