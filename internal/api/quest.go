package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dexterslab/plural-backend/internal/storage/postgres"
	"github.com/dexterslab/plural-backend/internal/types"
)

// maxTitleLen bounds the title derived from the initial prompt.
const maxTitleLen = 50

// CreateQuestRequest is the request body for creating a quest.
type CreateQuestRequest struct {
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

// ListQuestsResponse is the response for listing quests.
type ListQuestsResponse struct {
	Quests []types.Quest `json:"quests"`
}

// CreateQuest creates a new quest for the authenticated user. The first
// message arrives separately via the messages endpoint.
func (s *Server) CreateQuest(c echo.Context) error {
	var req CreateQuestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	userID := GetUserID(c)
	title := titleFromPrompt(req.InitialPrompt)

	quest, err := s.questRepo.Create(c.Request().Context(), userID, title)
	if err != nil {
		s.logger.WithError(err).Error("failed to create quest")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create quest"})
	}

	return c.JSON(http.StatusCreated, quest)
}

// ListQuests returns all quests belonging to the authenticated user.
func (s *Server) ListQuests(c echo.Context) error {
	quests, err := s.questRepo.List(c.Request().Context(), GetUserID(c))
	if err != nil {
		s.logger.WithError(err).Error("failed to list quests")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list quests"})
	}

	if quests == nil {
		quests = []types.Quest{}
	}
	return c.JSON(http.StatusOK, ListQuestsResponse{Quests: quests})
}

// GetQuest returns a quest with its full message log.
func (s *Server) GetQuest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quest id"})
	}

	quest, err := s.questRepo.GetWithMessages(c.Request().Context(), id, GetUserID(c))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "quest not found"})
		}
		s.logger.WithError(err).Error("failed to get quest")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get quest"})
	}

	if quest.Messages == nil {
		quest.Messages = []types.Message{}
	}
	return c.JSON(http.StatusOK, quest)
}

// DeleteQuest deletes a quest and all its messages.
func (s *Server) DeleteQuest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quest id"})
	}

	if err := s.questRepo.Delete(c.Request().Context(), id, GetUserID(c)); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "quest not found"})
		}
		s.logger.WithError(err).Error("failed to delete quest")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete quest"})
	}

	return c.NoContent(http.StatusNoContent)
}

func titleFromPrompt(prompt string) *string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		title := "New Quest"
		return &title
	}
	// Truncate on runes so multibyte input is never cut mid-character.
	if runes := []rune(prompt); len(runes) > maxTitleLen {
		prompt = string(runes[:maxTitleLen]) + "..."
	}
	return &prompt
}
