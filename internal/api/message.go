package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dexterslab/plural-backend/internal/storage/postgres"
	"github.com/dexterslab/plural-backend/internal/types"
	"github.com/dexterslab/plural-backend/internal/worker"
)

// SendMessageRequest is the request body for adding a user message.
type SendMessageRequest struct {
	Content types.MessageContent `json:"content"`
}

// GenerateImageRequest is the request body for requesting image generation.
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
}

// SendMessage persists a user message and schedules the guide's response as
// a background job. The request returns as soon as the user message is
// durable; the model message appears in the quest's log when the turn
// completes.
func (s *Server) SendMessage(c echo.Context) error {
	questID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quest id"})
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	userID := GetUserID(c)
	if _, err := s.questRepo.GetByID(c.Request().Context(), questID, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "quest not found"})
		}
		s.logger.WithError(err).Error("failed to get quest")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get quest"})
	}

	msg := &types.Message{
		QuestID: questID,
		UserID:  userID,
		Role:    types.RoleUser,
		Content: req.Content,
	}
	if err := s.msgRepo.Create(c.Request().Context(), msg); err != nil {
		s.logger.WithError(err).Error("failed to save user message")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save message"})
	}

	accepted := s.pool.Submit(worker.Job{
		Name: "guide-response",
		Run: func(ctx context.Context) error {
			return s.turnService.Run(ctx, userID, questID)
		},
	})
	if !accepted {
		// The user message is already durable; the turn is simply lost
		// unless re-triggered.
		s.logger.WithField("quest_id", questID).Error("worker queue full, dropping guide response job")
	}

	return c.JSON(http.StatusAccepted, msg)
}

// GenerateImage schedules image generation for a quest as a background job.
func (s *Server) GenerateImage(c echo.Context) error {
	questID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quest id"})
	}

	var req GenerateImageRequest
	if err := c.Bind(&req); err != nil || req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "prompt is required"})
	}

	userID := GetUserID(c)
	if _, err := s.questRepo.GetByID(c.Request().Context(), questID, userID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "quest not found"})
		}
		s.logger.WithError(err).Error("failed to get quest")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get quest"})
	}

	prompt := req.Prompt
	accepted := s.pool.Submit(worker.Job{
		Name: "image-generation",
		Run: func(ctx context.Context) error {
			return s.turnService.GenerateImage(ctx, userID, questID, prompt)
		},
	})
	if !accepted {
		s.logger.WithField("quest_id", questID).Error("worker queue full, dropping image generation job")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server busy, try again later"})
	}

	return c.JSON(http.StatusAccepted, AcceptedResponse{Message: "image generation request received"})
}
