package config

const (
	defaultStorageProvider = "inmemory"

	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultVectorCollection = "teachings"

	defaultEmbeddingProvider   = "hashed"
	defaultEmbeddingDimensions = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
//
// The defaults run without any external service: in-memory store, hashed
// embedder, no vector index, no generative tier, no-op event publisher.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Dimensions: defaultEmbeddingDimensions,
		},
	}
}
