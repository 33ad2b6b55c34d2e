package feedback

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const defaultModel = "gpt-4o-mini"

// Option is a functional option for configuring a [Summariser].
type Option func(*Summariser)

// WithModel selects the completion model. Default: gpt-4o-mini.
func WithModel(model string) Option {
	return func(s *Summariser) { s.model = model }
}

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(s *Summariser) { s.baseURL = url }
}

// Summariser produces session summaries through the OpenAI API.
type Summariser struct {
	client  oai.Client
	model   string
	baseURL string
}

// NewSummariser creates a Summariser authenticated with apiKey.
func NewSummariser(apiKey string, opts ...Option) (*Summariser, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("feedback: api key must not be empty")
	}
	s := &Summariser{model: defaultModel}
	for _, o := range opts {
		o(s)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	s.client = oai.NewClient(reqOpts...)
	return s, nil
}

// Summarise renders stats into a prompt and returns the model's summary.
func (s *Summariser) Summarise(ctx context.Context, stats SessionStats) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(BuildPrompt(stats)),
		},
		Temperature: param.NewOpt(0.6),
	})
	if err != nil {
		return "", fmt.Errorf("feedback: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("feedback: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
