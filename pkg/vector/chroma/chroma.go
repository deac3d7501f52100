// Package chroma provides a Chroma vector index driver over its REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for teaching embeddings.
	DefaultCollectionName = "teachings"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewDriver creates a new Chroma vector driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	logger.Info("using Chroma vector index",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
	)

	return d, nil
}

// EnsureCollection gets or creates the collection. Chroma handles
// dimensionality from the first upsert, so dimensions is advisory here.
func (d *Driver) EnsureCollection(ctx context.Context, dimensions uint) error {
	if d.collectionID != "" {
		return nil
	}

	id, err := d.getOrCreateCollection(ctx)
	if err != nil {
		return fmt.Errorf("%w: getting or creating collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}
	d.collectionID = id

	d.logger.Debug("resolved chroma collection",
		zap.String("collection", d.collectionName),
		zap.String("collection_id", id),
		zap.Uint("dimensions", dimensions),
	)

	return nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	// Try to get existing collection first
	url := fmt.Sprintf("%s%s/%s", d.baseURL, collectionsPath, d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := d.baseURL + collectionsPath
	createBody := map[string]string{"name": d.collectionName}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// Upsert inserts or replaces the point for the given id.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	if err := d.EnsureCollection(ctx, uint(len(p.Embedding))); err != nil {
		return err
	}

	reqBody := chromaUpsertRequest{
		IDs:        []string{p.ID},
		Embeddings: [][]float32{p.Embedding},
		Documents:  []string{p.Payload.Text},
		Metadatas: []map[string]any{
			{
				"tags":       joinTags(p.Payload.Tags),
				"scope":      p.Payload.Scope,
				"session_id": p.Payload.SessionID,
				"created_at": p.Payload.CreatedAt.Format(time.RFC3339Nano),
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling upsert request: %w", err)
	}

	url := fmt.Sprintf("%s%s/%s/upsert", d.baseURL, collectionsPath, d.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending upsert request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upsert point: status %d: %s", resp.StatusCode, string(body))
	}

	d.logger.Debug("upserted point to chroma",
		zap.String("id", p.ID),
	)

	return nil
}

// Search returns up to topK nearest points by similarity.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int) ([]vector.Result, error) {
	if err := d.EnsureCollection(ctx, uint(len(embedding))); err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling query request: %w", err)
	}

	url := fmt.Sprintf("%s%s/%s/query", d.baseURL, collectionsPath, d.collectionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending query request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query: status %d: %s", resp.StatusCode, string(body))
	}

	var queryResp chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	var results []vector.Result

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.Result{
			Point: vector.Point{ID: id},
		}

		if i < len(documents) {
			result.Point.Payload.Text = documents[i]
		}

		if i < len(metadatas) && metadatas[i] != nil {
			result.Point.Payload = payloadFromMetadata(metadatas[i], result.Point.Payload.Text)
		}

		// Convert distance to similarity score
		// Lower distance = higher similarity
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Healthy reports whether the Chroma server is reachable.
func (d *Driver) Healthy(ctx context.Context) error {
	url := d.baseURL + "/api/v2/heartbeat"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating heartbeat request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: heartbeat returned status %d", vector.ErrConnection, resp.StatusCode)
	}

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

func payloadFromMetadata(m map[string]any, text string) vector.Payload {
	p := vector.Payload{Text: text}

	if scope, ok := m["scope"].(string); ok {
		p.Scope = scope
	}
	if sessionID, ok := m["session_id"].(string); ok {
		p.SessionID = sessionID
	}
	if tags, ok := m["tags"].(string); ok {
		p.Tags = splitTags(tags)
	}
	if created, ok := m["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			p.CreatedAt = ts
		}
	}

	return p
}

var _ vector.Driver = (*Driver)(nil)
