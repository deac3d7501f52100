// Package reindexcmder provides the reindex command for rebuilding the
// vector index of a running mentor server.
package reindexcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mentor/api"
	"github.com/papercomputeco/mentor/pkg/cliui"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/engine"
)

type reindexCommander struct {
	force     bool
	apiTarget string
}

const reindexLongDesc string = `Rebuild the server's vector index from the knowledge store.

Walks every stored teaching, re-embeds it, and upserts it into the vector
index. Useful after switching embedding providers or standing up a new
vector store. Requires the server to be configured with an embedder and a
vector store.

Examples:
  mentor reindex
  mentor reindex --api-target http://localhost:8081`

const reindexShortDesc string = "Rebuild the vector index"

func NewReindexCmd() *cobra.Command {
	cmder := &reindexCommander{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Reindex even if the collection already exists")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Mentor API server URL")

	return cmd
}

func (c *reindexCommander) run() error {
	var result engine.ReindexResult

	err := cliui.Step(os.Stdout, "Reindexing teachings", func() error {
		var stepErr error
		result, stepErr = reindexAPI(c.apiTarget, c.force)
		return stepErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n",
		cliui.KeyStyle.Render("Upserted:"),
		cliui.ValueStyle.Render(strconv.Itoa(result.Upserted)),
	)
	if result.Failed > 0 {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Failed:  "),
			cliui.FailMark+" "+strconv.Itoa(result.Failed),
		)
	}
	fmt.Println()

	return nil
}

func reindexAPI(apiTarget string, force bool) (engine.ReindexResult, error) {
	var result engine.ReindexResult

	target, err := url.Parse(apiTarget)
	if err != nil {
		return result, fmt.Errorf("invalid API target URL: %w", err)
	}
	target.Path = "/reindex"

	payload, err := json.Marshal(api.ReindexRequest{Force: force})
	if err != nil {
		return result, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return result, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		if json.Unmarshal(body, &errResp) == nil && errResp.Error == "no_embedder" {
			return result, fmt.Errorf("the server has no embedding capability configured")
		}
		return result, fmt.Errorf("reindex request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("failed to parse reindex response: %w", err)
	}

	return result, nil
}
