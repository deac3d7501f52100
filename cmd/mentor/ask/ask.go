// Package askcmder provides the ask command for querying a running mentor server.
package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/api"
	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/dotdir"
	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/utils"
)

var (
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type askCommander struct {
	input     string
	topK      int
	sessionID string
	plain     bool
	apiTarget string
}

const askLongDesc string = `Ask a running mentor server a question.

The server answers from its stored teachings: a high-confidence retrieval
match is returned verbatim; otherwise, when a generative provider is
configured, the server composes an answer from the closest teachings and
learns it for next time.

Your session id is sent with the request so session-scoped teachings are
visible. Use --plain to skip markdown rendering (useful for piping).

Examples:
  mentor ask "What is the capital of France?"
  mentor ask "How do deploys work here?" --top 8
  mentor ask "What is the capital of France?" --plain | cat`

const askShortDesc string = "Ask a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
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
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.input = args[0]

			configDir, _ := cmd.Flags().GetString("config-dir")

			manager := dotdir.NewManager()
			state, err := manager.EnsureSession(configDir)
			if err != nil {
				return fmt.Errorf("ensuring session: %w", err)
			}
			cmder.sessionID = state.SessionID

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", engine.DefaultTopK, "Number of teachings to retrieve")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the reply without markdown rendering")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Mentor API server URL")

	return cmd
}

func (c *askCommander) run() error {
	var result engine.RespondResult

	err := cliui.Step(os.Stdout, "Thinking", func() error {
		var stepErr error
		result, stepErr = AskAPI(c.apiTarget, c.input, c.sessionID, c.topK)
		return stepErr
	})
	if err != nil {
		return err
	}

	if c.plain {
		fmt.Println(result.Reply)
	} else {
		rendered, err := cliui.RenderMarkdown(result.Reply)
		if err != nil {
			fmt.Println(result.Reply)
		} else {
			fmt.Print(rendered)
		}
	}

	if len(result.Sources) > 0 {
		fmt.Printf("  %s\n", cliui.KeyStyle.Render("Sources:"))
		for _, src := range result.Sources {
			line := fmt.Sprintf("  %s %s",
				scoreStyle.Render(fmt.Sprintf("%.2f", src.Score)),
				cliui.SourceStyle.Render(utils.Truncate(src.Text, 72)),
			)
			if len(src.Tags) > 0 {
				line += " " + tagStyle.Render(fmt.Sprintf("%v", src.Tags))
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	return nil
}

// AskAPI calls the mentor respond API and returns the parsed result.
// Exported so other commands can reuse it.
func AskAPI(apiTarget, input, sessionID string, topK int) (engine.RespondResult, error) {
	var result engine.RespondResult

	target, err := url.Parse(apiTarget)
	if err != nil {
		return result, fmt.Errorf("invalid API target URL: %w", err)
	}
	target.Path = "/respond"

	payload, err := json.Marshal(api.RespondRequest{
		Input: input,
		TopK:  topK,
	})
	if err != nil {
		return result, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return result, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(api.HeaderSessionID, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("failed to connect to mentor API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return result, fmt.Errorf("respond request failed (HTTP %d): %s", resp.StatusCode, errResp.Error)
		}
		return result, fmt.Errorf("respond request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("failed to parse respond response: %w", err)
	}

	return result, nil
}
