package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	guard       *resilience.Guard
}

type Options struct {
	Temperature float64
	MaxTokens   int
	HTTPTimeout time.Duration
	Guard       *resilience.Guard
}

func New(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	temperature := options.Temperature
	if temperature <= 0 {
		temperature = 0.3
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    genModel,
		embedModel:  embedModel,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
		guard:       options.Guard,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed", errors.New("text is empty"))
	}

	request := map[string]any{
		"model":  e.client.embedModel,
		"prompt": text,
	}

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	err := e.client.execute(ctx, "ollama.embed", domain.ErrEmbeddingUnavailable, func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embeddings", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	// A well-formed 200 without a vector still counts as unavailable;
	// proceeding with a zero vector would corrupt similarity rankings.
	if len(response.Embedding) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("response contains no embedding vector"))
	}
	return response.Embedding, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error) {
	request := map[string]any{
		"model":    g.client.genModel,
		"messages": buildAnswerMessages(question, contextBlock),
		"stream":   false,
		"options": map[string]any{
			"temperature": g.client.temperature,
			"num_predict": g.client.maxTokens,
		},
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	err := g.client.execute(ctx, "ollama.chat", domain.ErrGenerationFailed, func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/chat", request, &response, "chat")
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(response.Message.Content)
	if answer == "" {
		return "", domain.WrapError(domain.ErrGenerationFailed, "chat", errors.New("model returned an empty answer"))
	}
	return answer, nil
}

func (c *Client) execute(ctx context.Context, operation string, kind error, fn func(context.Context) error) error {
	var err error
	if c.guard != nil {
		err = c.guard.Execute(ctx, operation, fn, isUpstreamFailure)
	} else {
		err = fn(ctx)
	}
	if err == nil {
		return nil
	}
	if domain.IsKind(err, kind) {
		return err
	}
	return domain.WrapError(kind, operation, err)
}

func isUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
