package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// Client wraps an OpenAI-compatible API for embeddings and grounded
// answer generation. Any endpoint speaking the OpenAI wire format works,
// including self-hosted inference servers.
type Client struct {
	api        *openai.Client
	embedModel openai.EmbeddingModel
	genModel   string
	dimensions int
}

type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	GenModel   string
	Dimensions int
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		embedModel: openai.EmbeddingModel(cfg.EmbedModel),
		genModel:   cfg.GenModel,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateAnswer produces an answer grounded in the supplied documents.
// The model is instructed to refuse rather than invent when the context
// does not contain the answer.
func (c *Client) GenerateAnswer(ctx context.Context, question string, docs []domain.Document) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.genModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnswerPrompt(question, docs)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ValidateDimension embeds a probe text and checks the vector length
// against the configured dimension. Run at startup: a model/index
// dimension mismatch fails every dense query at runtime, so it must
// fail boot instead.
func (c *Client) ValidateDimension(ctx context.Context) error {
	if c.dimensions <= 0 {
		return nil
	}
	vector, err := c.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	if len(vector) != c.dimensions {
		return fmt.Errorf("embedding model %s returns %d dimensions, configured %d", c.embedModel, len(vector), c.dimensions)
	}
	return nil
}

// Ping checks API availability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
