package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

// TeachRequest is the body for POST /teach.
type TeachRequest struct {
	Text      string   `json:"text"`
	Tags      []string `json:"tags,omitempty"`
	Scope     string   `json:"scope,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

// TeachResponse is returned on a successful teach.
type TeachResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// RespondRequest is the body for POST /respond.
type RespondRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

// ReindexRequest is the body for POST /reindex.
type ReindexRequest struct {
	Force bool `json:"force,omitempty"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth reports each collaborator's status. Always 200; consumers
// inspect the ok field.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.engine.Health(c.Context()))
}

// sessionID resolves the caller's session identity: the x-session-id
// header wins over the body field.
func sessionID(c *fiber.Ctx, bodySessionID string) string {
	if sid := c.Get(HeaderSessionID); sid != "" {
		return sid
	}
	return bodySessionID
}

// handleTeach ingests a new teaching. Scope defaults to session when the
// request carries a session id, global otherwise.
func (s *Server) handleTeach(c *fiber.Ctx) error {
	var req TeachRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	sid := sessionID(c, req.SessionID)

	scope := teaching.Scope(req.Scope)
	if req.Scope == "" {
		scope = teaching.ScopeGlobal
		if sid != "" {
			scope = teaching.ScopeSession
		}
	}
	if scope == teaching.ScopeGlobal {
		sid = ""
	}

	t, err := s.engine.Teach(c.Context(), engine.TeachRequest{
		Text:      req.Text,
		Tags:      req.Tags,
		Scope:     scope,
		SessionID: sid,
	})
	if err != nil {
		var validationErr teaching.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: validationErr.Error()})
		}
		var conflictErr store.ConflictError
		if errors.As(err, &conflictErr) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: conflictErr.Error()})
		}

		s.logger.Error("teach failed",
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error"})
	}

	return c.JSON(TeachResponse{OK: true, ID: t.ID})
}

// handleRespond answers a query through the retrieval pipeline.
func (s *Server) handleRespond(c *fiber.Ctx) error {
	var req RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.TopK < 0 || req.TopK > engine.MaxTopK {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "top_k out of range"})
	}

	result, err := s.engine.Respond(c.Context(), engine.RespondRequest{
		Input:     req.Input,
		SessionID: sessionID(c, req.SessionID),
		TopK:      req.TopK,
	})
	if err != nil {
		var validationErr teaching.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: validationErr.Error()})
		}

		s.logger.Error("respond failed",
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error"})
	}

	return c.JSON(result)
}

// handleReindex rebuilds the vector index from the knowledge store.
func (s *Server) handleReindex(c *fiber.Ctx) error {
	var req ReindexRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}

	result, err := s.engine.Reindex(c.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNoEmbeddingCapability) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "no_embedder"})
		}

		s.logger.Error("reindex failed",
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error"})
	}

	return c.JSON(result)
}
