package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/infrastructure/resilience"
)

// Client talks to one Qdrant collection over the HTTP API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	guard      *resilience.Guard
}

type Options struct {
	HTTPTimeout time.Duration
	Guard       *resilience.Guard
}

func New(baseURL, collection string) *Client {
	return NewWithOptions(baseURL, collection, Options{})
}

func NewWithOptions(baseURL, collection string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		guard:      options.Guard,
	}
}

// Describe returns the collection descriptor, or (nil, nil) when the
// collection does not exist.
func (c *Client) Describe(ctx context.Context) (*domain.CollectionInfo, error) {
	var info *domain.CollectionInfo
	err := c.execute(ctx, "qdrant.describe", domain.ErrIndexUnavailable, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL(), nil)
		if err != nil {
			return fmt.Errorf("create describe request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant describe request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode >= 300 {
			return statusError("describe", resp)
		}

		var describeResp struct {
			Result struct {
				PointsCount uint64 `json:"points_count"`
				Config      struct {
					Params struct {
						Vectors struct {
							Size     int    `json:"size"`
							Distance string `json:"distance"`
						} `json:"vectors"`
					} `json:"params"`
				} `json:"config"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&describeResp); err != nil {
			return fmt.Errorf("decode describe response: %w", err)
		}

		info = &domain.CollectionInfo{
			Dimension:   describeResp.Result.Config.Params.Vectors.Size,
			Distance:    describeResp.Result.Config.Params.Vectors.Distance,
			PointsCount: describeResp.Result.PointsCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Create makes the collection with the given dimension and cosine distance.
// Creating an already-existing collection is a no-op, which keeps concurrent
// reconcilers racing on an absent collection safe.
func (c *Client) Create(ctx context.Context, dimension int) error {
	return c.execute(ctx, "qdrant.create", domain.ErrIndexUnavailable, func(ctx context.Context) error {
		body, err := json.Marshal(map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		})
		if err != nil {
			return fmt.Errorf("marshal create collection body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.collectionURL(), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create collection request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant create collection request: %w", err)
		}
		defer resp.Body.Close()

		// 409 means the collection already exists.
		if resp.StatusCode == http.StatusConflict {
			return nil
		}
		if resp.StatusCode >= 300 {
			return statusError("create collection", resp)
		}
		return nil
	})
}

func (c *Client) Drop(ctx context.Context) error {
	return c.execute(ctx, "qdrant.drop", domain.ErrIndexUnavailable, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.collectionURL(), nil)
		if err != nil {
			return fmt.Errorf("create drop request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant drop request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode >= 300 {
			return statusError("drop collection", resp)
		}
		return nil
	})
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.Domain != "" {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": "domain",
					"match": map[string]any{
						"value": filter.Domain,
					},
				},
			},
		}
	}

	var out []domain.RetrievedChunk
	err := c.execute(ctx, "qdrant.search", domain.ErrRetrievalFailed, func(ctx context.Context) error {
		body, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal search body: %w", err)
		}

		url := fmt.Sprintf("%s/points/search", c.collectionURL())
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return statusError("search", resp)
		}

		var searchResp struct {
			Result []struct {
				ID      any            `json:"id"`
				Score   *float64       `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}

		out = make([]domain.RetrievedChunk, 0, len(searchResp.Result))
		for _, r := range searchResp.Result {
			out = append(out, domain.RetrievedChunk{
				ID:       stringifyID(r.ID),
				PolicyID: getIntPayload(r.Payload, "policy_id"),
				Text:     getStringPayload(r.Payload, "text"),
				Domain:   getStringPayload(r.Payload, "domain"),
				DocType:  getStringPayload(r.Payload, "doc_type"),
				URL:      getStringPayload(r.Payload, "url"),
				Score:    r.Score,
				Metadata: decodeMetadata(r.Payload["metadata"]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
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

// isUpstreamFailure keeps client-side mistakes (4xx) from tripping the
// breaker; only transport errors and 5xx count against Qdrant's health.
func isUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func stringifyID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// decodeMetadata accepts both payload shapes the index has accumulated:
// current points store a nested object, legacy points a JSON-encoded string.
func decodeMetadata(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
