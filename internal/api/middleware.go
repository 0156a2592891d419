package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates bearer tokens and extracts the user identity.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header"})
		}

		claims, err := s.authService.ValidateToken(parts[1])
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		}

		c.Set("user_id", claims.Subject)
		return next(c)
	}
}

// GetUserID extracts the authenticated user id from the echo context.
func GetUserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}
