// Package teachcmder provides the teach command for ingesting teachings
// into a running mentor server.
package teachcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/api"
	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/dotdir"
)

type teachCommander struct {
	text      string
	tags      []string
	scope     string
	sessionID string
	apiTarget string
}

const teachLongDesc string = `Store a teaching in a running mentor server.

A teaching is a unit of knowledge the server retrieves from when answering
questions. By default the teaching is scoped to your current session; pass
--global to make it visible to every session.

Examples:
  mentor teach "The capital of France is Paris."
  mentor teach "Deploys go through staging first." --tag ops --tag process
  mentor teach "Water boils at 100C at sea level." --global`

const teachShortDesc string = "Store a teaching"

func NewTeachCmd() *cobra.Command {
	cmder := &teachCommander{}

	var global bool

	cmd := &cobra.Command{
		Use:   "teach <text>",
		Short: teachShortDesc,
		Long:  teachLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return resolveClientTarget(cmd, configDir, &cmder.apiTarget)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.text = args[0]

			if global {
				cmder.scope = "global"
			} else {
				configDir, _ := cmd.Flags().GetString("config-dir")

				manager := dotdir.NewManager()
				state, err := manager.EnsureSession(configDir)
				if err != nil {
					return fmt.Errorf("ensuring session: %w", err)
				}

				cmder.scope = "session"
				cmder.sessionID = state.SessionID
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVarP(&global, "global", "g", false, "Store the teaching globally instead of in the current session")
	addAPITargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *teachCommander) run() error {
	var resp api.TeachResponse

	err := cliui.Step(os.Stdout, "Storing teaching", func() error {
		var stepErr error
		resp, stepErr = TeachAPI(c.apiTarget, api.TeachRequest{
			Text:      c.text,
			Tags:      c.tags,
			Scope:     c.scope,
			SessionID: c.sessionID,
		}, c.sessionID)
		return stepErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n",
		cliui.KeyStyle.Render("Stored:"),
		cliui.ValueStyle.Render(resp.ID),
	)
	if c.scope == "session" {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Session:"),
			cliui.DimStyle.Render(c.sessionID),
		)
	}
	fmt.Println()

	return nil
}

// TeachAPI posts a teaching to the mentor API. Exported so other commands
// can reuse it.
func TeachAPI(apiTarget string, reqBody api.TeachRequest, sessionID string) (api.TeachResponse, error) {
	var out api.TeachResponse

	body, err := postJSON(apiTarget, "/teach", reqBody, sessionID)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("failed to parse teach response: %w", err)
	}

	return out, nil
}

// postJSON POSTs a JSON body to the mentor API and returns the response body.
// Shared by the client commands in this package tree.
func postJSON(apiTarget, path string, reqBody any, sessionID string) ([]byte, error) {
	target, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	target.Path = path

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(api.HeaderSessionID, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mentor API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// resolveClientTarget fills target from config when the --api-target flag
// was not set explicitly.
func resolveClientTarget(cmd *cobra.Command, configDir string, target *string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed("api-target") {
		*target = cfg.Client.APITarget
	}
	return nil
}

// addAPITargetFlag registers the --api-target flag with the configured default.
func addAPITargetFlag(cmd *cobra.Command, target *string) {
	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(target, "api-target", defaults.Client.APITarget, "Mentor API server URL")
}
