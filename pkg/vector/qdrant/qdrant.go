// Package qdrant provides a Qdrant vector index driver over its gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for teaching embeddings.
	DefaultCollectionName = "teachings"

	// defaultPort is Qdrant's gRPC port.
	defaultPort = 6334
)

// Driver implements vector.Driver using a Qdrant server.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address, e.g. "localhost:6334".
	// A bare host defaults to port 6334.
	Target string

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// UseTLS enables transport security. Required for Qdrant Cloud.
	UseTLS bool
}

// NewDriver creates a new Qdrant vector driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant target %q: %w", c.Target, err)
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	logger.Info("connected to qdrant",
		zap.String("target", c.Target),
		zap.String("collection", collectionName),
	)

	return &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}, nil
}

// EnsureCollection creates the collection if absent with cosine distance.
func (d *Driver) EnsureCollection(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}

	d.logger.Info("created qdrant collection",
		zap.String("collection", d.collectionName),
		zap.Uint("dimensions", dimensions),
	)

	return nil
}

// Upsert inserts or replaces the point for the given id.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	payload := map[string]any{
		"text":       p.Payload.Text,
		"scope":      p.Payload.Scope,
		"session_id": p.Payload.SessionID,
		"created_at": p.Payload.CreatedAt.Format(time.RFC3339Nano),
	}
	tags := make([]any, len(p.Payload.Tags))
	for i, tag := range p.Payload.Tags {
		tags[i] = tag
	}
	payload["tags"] = tags

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(p.ID),
				Vectors: qdrant.NewVectors(p.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: upserting point %s: %v", vector.ErrConnection, p.ID, err)
	}

	return nil
}

// Search returns up to topK nearest points by cosine similarity.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}

	results := make([]vector.Result, 0, len(points))
	for _, point := range points {
		results = append(results, vector.Result{
			Point: vector.Point{
				ID:      point.GetId().GetUuid(),
				Payload: payloadFromValues(point.GetPayload()),
			},
			Score: point.GetScore(),
		})
	}

	return results, nil
}

// Healthy reports whether the Qdrant server is reachable.
func (d *Driver) Healthy(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// payloadFromValues converts a Qdrant payload map back into a vector.Payload.
func payloadFromValues(values map[string]*qdrant.Value) vector.Payload {
	p := vector.Payload{
		Text:      values["text"].GetStringValue(),
		Scope:     values["scope"].GetStringValue(),
		SessionID: values["session_id"].GetStringValue(),
	}

	if created := values["created_at"].GetStringValue(); created != "" {
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			p.CreatedAt = ts
		}
	}

	for _, v := range values["tags"].GetListValue().GetValues() {
		if tag := v.GetStringValue(); tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}

	return p
}

// splitTarget splits "host:port" with an optional scheme prefix, defaulting
// to the Qdrant gRPC port.
func splitTarget(target string) (string, int, error) {
	if i := strings.Index(target, "://"); i >= 0 {
		target = target[i+3:]
	}

	if !strings.Contains(target, ":") {
		return target, defaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	return host, port, nil
}

var _ vector.Driver = (*Driver)(nil)
