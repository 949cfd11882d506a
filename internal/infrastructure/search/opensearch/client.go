package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// allMatchesSize is the request size used when the caller asks for an
// uncapped BM25 result set. OpenSearch requires an explicit size; this is
// its default index.max_result_window.
const allMatchesSize = 10000

// Client talks to an OpenSearch index holding the policy chunks. Both
// the BM25 inverted index and the kNN vector field live on the same
// index, so sparse and dense retrieval hit the same corpus version.
type Client struct {
	baseURL    string
	index      string
	username   string
	password   string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredIndex      bool
	ensuredVectorSize int
}

func New(baseURL, index, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// SearchBM25 runs a fuzzy full-text match over chunk content. topK <= 0
// returns all matches. Raw BM25 scores are unbounded, so they are
// squashed to [0,1) with s/(s+1) to keep one score scale across
// retrievers.
func (c *Client) SearchBM25(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.Document, error) {
	size := topK
	if size <= 0 {
		size = allMatchesSize
	}

	match := map[string]any{
		"match": map[string]any{
			"content": map[string]any{
				"query":     query,
				"fuzziness": "AUTO",
			},
		},
	}

	reqBody := map[string]any{
		"size":  size,
		"query": wrapWithFilter(match, filter),
	}

	docs, err := c.search(ctx, reqBody)
	if err != nil {
		return nil, fmt.Errorf("opensearch bm25 search: %w", err)
	}
	for i := range docs {
		docs[i].Score = docs[i].Score / (docs[i].Score + 1)
	}
	return docs, nil
}

// SearchDense runs approximate kNN over the embedding field.
func (c *Client) SearchDense(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]domain.Document, error) {
	if topK <= 0 {
		topK = 10
	}

	knn := map[string]any{
		"knn": map[string]any{
			"embedding": map[string]any{
				"vector": vector,
				"k":      topK,
			},
		},
	}

	reqBody := map[string]any{
		"size":  topK,
		"query": wrapWithFilter(knn, filter),
	}

	docs, err := c.search(ctx, reqBody)
	if err != nil {
		return nil, fmt.Errorf("opensearch knn search: %w", err)
	}
	return docs, nil
}

func (c *Client) search(ctx context.Context, reqBody map[string]any) ([]domain.Document, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("search", resp)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Content string         `json:"content"`
					Meta    map[string]any `json:"meta"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Document, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		out = append(out, domain.Document{
			ID:      hit.ID,
			Content: hit.Source.Content,
			Score:   hit.Score,
			Meta:    hit.Source.Meta,
		})
	}
	return out, nil
}

// Index bulk-writes chunk documents with their embeddings.
func (c *Client) Index(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs/vectors mismatch: %d/%d", len(docs), len(vectors))
	}

	if err := c.ensureIndex(ctx, len(vectors[0])); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, doc := range docs {
		action := map[string]any{"index": map[string]any{"_index": c.index, "_id": doc.ID}}
		source := map[string]any{
			"content":   doc.Content,
			"meta":      doc.Meta,
			"embedding": vectors[i],
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(source); err != nil {
			return fmt.Errorf("encode bulk source: %w", err)
		}
	}

	return c.bulk(ctx, buf.Bytes())
}

// Delete removes chunk documents by ID.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		action := map[string]any{"delete": map[string]any{"_index": c.index, "_id": id}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
	}

	return c.bulk(ctx, buf.Bytes())
}

func (c *Client) bulk(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/_bulk", c.baseURL)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("bulk", resp)
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("opensearch bulk: one or more items failed")
	}
	return nil
}

// Ping checks cluster health.
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/_cluster/health", c.baseURL)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("cluster health", resp)
	}
	return nil
}

func (c *Client) ensureIndex(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredIndex && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"content": map[string]any{"type": "text"},
				"meta":    map[string]any{"type": "object"},
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": vectorSize,
				},
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create index body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.index)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// resource_already_exists_exception comes back as 400.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if strings.Contains(string(raw), "resource_already_exists_exception") {
			c.markIndexEnsured(vectorSize)
			return nil
		}
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("opensearch ensure index status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("opensearch ensure index status: %s", resp.Status)
	}

	c.markIndexEnsured(vectorSize)
	return nil
}

func (c *Client) markIndexEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredIndex = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opensearch request: %w", err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Errorf("opensearch %s status: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("opensearch %s status: %s", op, resp.Status)
}
