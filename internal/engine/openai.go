package engine

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAICompleter talks to any OpenAI-compatible chat completion endpoint.
type openAICompleter struct {
	client *openai.Client
	model  string
}

func newOpenAICompleter(apiKey, baseURL, model string) (*openAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &openAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (o *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openAICompleter) Close() error {
	return nil
}
