package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

var (
	teachToolName    = "teach"
	teachDescription = "Store a short piece of knowledge for later retrieval. Session-scoped teachings are only visible to queries carrying the same session id; global teachings are visible everywhere."
)

// TeachInput represents the input arguments for the teach tool.
type TeachInput struct {
	Text      string   `json:"text" jsonschema:"the knowledge text to store"`
	Tags      []string `json:"tags,omitempty" jsonschema:"optional short labels for the teaching"`
	Scope     string   `json:"scope,omitempty" jsonschema:"visibility of the teaching: global or session (default: global, or session when session_id is given)"`
	SessionID string   `json:"session_id,omitempty" jsonschema:"session the teaching belongs to, required for session scope"`
}

// TeachOutput represents the output of the teach tool.
type TeachOutput struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// handleTeach processes a teach request.
func (s *Server) handleTeach(ctx context.Context, req *mcp.CallToolRequest, input TeachInput) (*mcp.CallToolResult, TeachOutput, error) {
	logger := s.config.Logger

	scope := teaching.Scope(input.Scope)
	if input.Scope == "" {
		scope = teaching.ScopeGlobal
		if input.SessionID != "" {
			scope = teaching.ScopeSession
		}
	}

	logger.Debug("MCP teach request",
		zap.String("scope", string(scope)),
	)

	t, err := s.config.Engine.Teach(ctx, engine.TeachRequest{
		Text:      input.Text,
		Tags:      input.Tags,
		Scope:     scope,
		SessionID: input.SessionID,
	})
	if err != nil {
		logger.Error("MCP teach failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to store teaching: %v", err)},
			},
		}, TeachOutput{}, nil
	}

	output := TeachOutput{OK: true, ID: t.ID}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal teach output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize result: %v", err)},
			},
		}, TeachOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
