package generativeutils

import (
	"fmt"

	"github.com/papercomputeco/mentor/pkg/generative"
	"github.com/papercomputeco/mentor/pkg/generative/ollama"
	"github.com/papercomputeco/mentor/pkg/generative/openai"
)

type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

// NewCompleter creates a Completer for the given provider. An empty
// provider returns nil, meaning generation is disabled.
func NewCompleter(o *NewCompleterOpts) (generative.Completer, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewCompleter(openai.CompleterConfig{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "ollama":
		return ollama.NewCompleter(ollama.CompleterConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported generative provider: %s", o.ProviderType)
	}
}
