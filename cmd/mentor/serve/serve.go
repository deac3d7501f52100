// Package servecmder provides the serve command for running the mentor API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/api"
	"github.com/papercomputeco/mentor/api/mcp"
	"github.com/papercomputeco/mentor/pkg/config"
	embeddingutils "github.com/papercomputeco/mentor/pkg/embeddings/utils"
	"github.com/papercomputeco/mentor/pkg/engine"
	eventstreamutils "github.com/papercomputeco/mentor/pkg/eventstream/utils"
	generativeutils "github.com/papercomputeco/mentor/pkg/generative/utils"
	"github.com/papercomputeco/mentor/pkg/logger"
	storeutils "github.com/papercomputeco/mentor/pkg/store/utils"
	vectorutils "github.com/papercomputeco/mentor/pkg/vector/utils"
)

type ServeCommander struct {
	listen             string
	storageProvider    string
	storageTarget      string
	vectorProvider     string
	vectorTarget       string
	vectorCollection   string
	embeddingProvider  string
	embeddingTarget    string
	embeddingModel     string
	embeddingDims      uint
	generativeProvider string
	generativeTarget   string
	generativeModel    string
	eventStreamProv    string
	debug              bool
	v                  *viper.Viper
	logger             *zap.Logger
}

const serveLongDesc string = `Run the mentor API server.

The server exposes the teach, respond, reindex, and health operations over
HTTP, plus the teach and ask tools over MCP at /mcp.

Configuration precedence: flags > MENTOR_* environment variables >
.mentor/config.toml > defaults. With no configuration at all the server
runs self-contained: in-memory store, hashed embeddings, no vector index,
no generative tier.`

const serveShortDesc string = "Run the mentor API server"

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagStorageProv: {
		Name: "storage-provider", ViperKey: "storage.provider",
		Description: "Knowledge store provider (postgres, sqlite, inmemory)",
	},
	config.FlagStorageTgt: {
		Name: "storage-target", ViperKey: "storage.target",
		Description: "Knowledge store target (postgres DSN or sqlite path)",
	},
	config.FlagVectorStoreProv: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector index provider (qdrant, chroma, sqlitevec); empty disables the vector tier",
	},
	config.FlagVectorStoreTgt: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "Vector index target (qdrant host:port, chroma URL, or sqlite path)",
	},
	config.FlagVectorStoreColl: {
		Name: "vector-store-collection", ViperKey: "vector_store.collection",
		Description: "Vector collection name",
	},
	config.FlagEmbeddingProv: {
		Name: "embedding-provider", ViperKey: "embedding.provider",
		Description: "Embedding provider (openai, ollama, hashed)",
	},
	config.FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
		Description: "Embedding dimensions for the hashed provider",
	},
	config.FlagGenerativeProv: {
		Name: "generative-provider", ViperKey: "generative.provider",
		Description: "Generative provider (openai, ollama); empty disables escalation",
	},
	config.FlagGenerativeTgt: {
		Name: "generative-target", ViperKey: "generative.target",
		Description: "Generative provider URL",
	},
	config.FlagGenerativeModel: {
		Name: "generative-model", ViperKey: "generative.model",
		Description: "Generative model name",
	},
	config.FlagEventStreamProv: {
		Name: "eventstream-provider", ViperKey: "eventstream.provider",
		Description: "Teaching event publisher (kafka, nop)",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageProv,
	config.FlagStorageTgt,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreColl,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagGenerativeProv,
	config.FlagGenerativeTgt,
	config.FlagGenerativeModel,
	config.FlagEventStreamProv,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.v = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageProv, &cmder.storageProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageTgt, &cmder.storageTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreColl, &cmder.vectorCollection)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagGenerativeProv, &cmder.generativeProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagGenerativeTgt, &cmder.generativeTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagGenerativeModel, &cmder.generativeModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventStreamProv, &cmder.eventStreamProv)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()
	v := c.v

	eng, err := c.newEngine(ctx, v)
	if err != nil {
		return err
	}
	defer eng.Close()

	apiConfig := api.Config{
		ListenAddr: v.GetString("api.listen"),
	}
	apiServer := api.NewServer(apiConfig, eng, c.logger)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Engine: eng,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	apiServer.MountMCP(mcpServer.Handler())

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// newEngine builds the engine and all its collaborators from viper config.
func (c *ServeCommander) newEngine(ctx context.Context, v *viper.Viper) (*engine.Engine, error) {
	storer, err := storeutils.NewDriver(ctx, &storeutils.NewDriverOpts{
		ProviderType: v.GetString("storage.provider"),
		Target:       v.GetString("storage.target"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	embeddingProvider := v.GetString("embedding.provider")
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: embeddingProvider,
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		APIKey:       v.GetString("embedding.api_key"),
		Dimensions:   v.GetUint("embedding.dimensions"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	index, err := vectorutils.NewDriver(&vectorutils.NewDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		Target:       v.GetString("vector_store.target"),
		Collection:   v.GetString("vector_store.collection"),
		APIKey:       v.GetString("vector_store.api_key"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	completer, err := generativeutils.NewCompleter(&generativeutils.NewCompleterOpts{
		ProviderType: v.GetString("generative.provider"),
		TargetURL:    v.GetString("generative.target"),
		Model:        v.GetString("generative.model"),
		APIKey:       v.GetString("generative.api_key"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating generative completer: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: v.GetString("eventstream.provider"),
		Brokers:      v.GetStringSlice("eventstream.brokers"),
		Topic:        v.GetString("eventstream.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	return engine.New(engine.Opts{
		Store:     storer,
		Embedder:  embedder,
		Hosted:    embeddingutils.Hosted(embeddingProvider),
		Index:     index,
		Completer: completer,
		Publisher: publisher,
		Logger:    c.logger,
	})
}
