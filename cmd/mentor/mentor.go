// Package mentorcmder
package mentorcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/mentor/cmd/mentor/ask"
	configcmder "github.com/papercomputeco/mentor/cmd/mentor/config"
	reindexcmder "github.com/papercomputeco/mentor/cmd/mentor/reindex"
	servecmder "github.com/papercomputeco/mentor/cmd/mentor/serve"
	statuscmder "github.com/papercomputeco/mentor/cmd/mentor/status"
	teachcmder "github.com/papercomputeco/mentor/cmd/mentor/teach"
	versioncmder "github.com/papercomputeco/mentor/cmd/version"
)

const mentorLongDesc string = `Mentor is a tiered retrieval-and-write-back knowledge engine.

Teach it short pieces of knowledge and ask it free-text questions:
  mentor serve         Run the mentor API server
  mentor teach         Store a teaching
  mentor ask           Ask a question
  mentor reindex       Rebuild the vector index from the knowledge store`

const mentorShortDesc string = "Mentor - Teachable Knowledge Engine"

func NewMentorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentor",
		Short: mentorShortDesc,
		Long:  mentorLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mentor/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(teachcmder.NewTeachCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(reindexcmder.NewReindexCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
