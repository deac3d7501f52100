// Package statuscmder provides the status command for displaying server
// health and the current local session.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/dotdir"
	"github.com/papercomputeco/mentor/pkg/engine"
)

type statusCommander struct {
	clearSession bool
	apiTarget    string
	configDir    string
}

const statusLongDesc string = `Show mentor server health and the current local session.

Queries the server's health endpoint and reports the state of each
capability: the knowledge store, the vector index, and the generative tier.
Also displays the session id from the local .mentor/ directory, if one
exists.

Examples:
  mentor status
  mentor status --clear-session`

const statusShortDesc string = "Show server health and session"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().BoolVar(&cmder.clearSession, "clear-session", false, "Forget the current session id")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Mentor API server URL")

	return cmd
}

func (c *statusCommander) run() error {
	manager := dotdir.NewManager()

	if c.clearSession {
		if err := manager.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		fmt.Printf("  %s Session cleared. The next teach or ask starts a new session.\n", cliui.SuccessMark)
		return nil
	}

	fmt.Println()

	health, err := healthAPI(c.apiTarget)
	if err != nil {
		fmt.Printf("  %s %s %s\n",
			cliui.StatusMark(false),
			cliui.KeyStyle.Render("Server:    "),
			cliui.DimStyle.Render(fmt.Sprintf("unreachable at %s", c.apiTarget)),
		)
	} else {
		fmt.Printf("  %s %s %s\n", cliui.StatusMark(health.OK), cliui.KeyStyle.Render("Server:    "), cliui.ValueStyle.Render(c.apiTarget))
		fmt.Printf("  %s %s\n", cliui.StatusMark(health.Store), cliui.KeyStyle.Render("Store"))
		fmt.Printf("  %s %s\n", cliui.StatusMark(health.Index), cliui.KeyStyle.Render("Vector index"))
		fmt.Printf("  %s %s\n", cliui.StatusMark(health.Generative), cliui.KeyStyle.Render("Generative"))
	}

	state, err := manager.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	fmt.Println()
	if state == nil {
		fmt.Printf("  %s No session. The next teach or ask starts one.\n", cliui.DimStyle.Render("●"))
	} else {
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Session:   "), cliui.ValueStyle.Render(state.SessionID))
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Started:   "), cliui.DimStyle.Render(state.StartedAt.Format("2006-01-02 15:04:05")))
	}
	fmt.Println()

	return nil
}

func healthAPI(apiTarget string) (*engine.HealthStatus, error) {
	target, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	target.Path = "/health"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var health engine.HealthStatus
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	return &health, nil
}
