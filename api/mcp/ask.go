package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a free-text query from stored teachings. Returns the reply plus the retrieved sources with their similarity scores."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Input     string `json:"input" jsonschema:"the query text"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session whose scoped teachings should be visible"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of sources to return (default: 4)"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Reply   string          `json:"reply"`
	Sources []engine.Source `json:"sources"`
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP ask request",
		zap.Int("topK", input.TopK),
	)

	result, err := s.config.Engine.Respond(ctx, engine.RespondRequest{
		Input:     input.Input,
		SessionID: input.SessionID,
		TopK:      input.TopK,
	})
	if err != nil {
		logger.Error("MCP ask failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to answer query: %v", err)},
			},
		}, AskOutput{}, nil
	}

	output := AskOutput{
		Reply:   result.Reply,
		Sources: result.Sources,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal ask output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize result: %v", err)},
			},
		}, AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
