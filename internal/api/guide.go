package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GuideResponse carries the user's custom guide prompt, nil when none is
// set.
type GuideResponse struct {
	Prompt *string `json:"prompt"`
}

// UpdateGuideRequest is the request body for updating the guide prompt.
type UpdateGuideRequest struct {
	Prompt string `json:"prompt"`
}

// GetGuide returns the authenticated user's custom guide prompt.
func (s *Server) GetGuide(c echo.Context) error {
	prompt, err := s.guideService.CustomPrompt(c.Request().Context(), GetUserID(c))
	if err != nil {
		s.logger.WithError(err).Error("failed to get guide prompt")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to retrieve guide information"})
	}
	return c.JSON(http.StatusOK, GuideResponse{Prompt: prompt})
}

// UpdateGuide stores a new custom guide prompt for the authenticated user.
func (s *Server) UpdateGuide(c echo.Context) error {
	var req UpdateGuideRequest
	if err := c.Bind(&req); err != nil || req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "prompt is required"})
	}

	userID := GetUserID(c)
	if err := s.guideService.UpdatePrompt(c.Request().Context(), userID, req.Prompt); err != nil {
		s.logger.WithError(err).Error("failed to update guide prompt")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update guide information"})
	}

	return c.JSON(http.StatusOK, GuideResponse{Prompt: &req.Prompt})
}
