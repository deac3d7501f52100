// Package generative defines the interface for generative answer drivers.
package generative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/mentor/pkg/teaching"
)

// ErrGeneration is the sentinel error wrapped by all completer failures.
var ErrGeneration = errors.New("generation failed")

// Completer produces a free-form answer to a query, optionally grounded
// in retrieved teachings.
type Completer interface {
	// Complete generates an answer to the query. The teachings, if any,
	// are supplied to the model as supporting context.
	Complete(ctx context.Context, query string, teachings []teaching.Teaching) (string, error)

	// Close releases any resources held by the completer.
	Close() error
}

// BuildPrompt renders the query and supporting teachings into a single
// prompt string shared by all completer drivers.
func BuildPrompt(query string, teachings []teaching.Teaching) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant. Answer the question concisely.\n")

	if len(teachings) > 0 {
		b.WriteString("\nUse the following notes where relevant:\n")
		for i, t := range teachings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Text)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)

	return b.String()
}
