// Package configcmder provides the config command for managing persistent
// mentor configuration stored in the .mentor/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mentor configuration.

Configuration is stored as config.toml in the .mentor/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.target,
  api.listen, client.api_target,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  generative.provider, generative.target, generative.model,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  mentor config set <key> <value>    Set a configuration value
  mentor config get <key>            Get a configuration value
  mentor config list                 List all configuration values

Examples:
  mentor config set storage.provider sqlite
  mentor config set embedding.model nomic-embed-text
  mentor config get vector_store.provider
  mentor config list`

const configShortDesc string = "Manage persistent mentor configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
