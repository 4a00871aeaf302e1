package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/pkg/jwt"
)

const (
	// subjectKey is the echo context key of the authenticated caller
	subjectKey = "subject"
)

// TokenValidator parses an access token
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// EchoAuth returns an Echo middleware that validates the bearer token and
// stores the resulting entities.Subject in the context
func EchoAuth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c.Request())
			if token == "" {
				return writeError(c, apperrors.ErrUnauthenticated())
			}

			claims, err := tokens.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpired) {
					return writeError(c, apperrors.ErrTokenExpired())
				}
				return writeError(c, apperrors.ErrInvalidToken())
			}

			role := entities.UserRole(claims.Role)
			if !role.IsValid() {
				return writeError(c, apperrors.ErrInvalidToken())
			}

			id := claims.Identity()
			c.Set(subjectKey, entities.Subject{
				UserID:    id.UserID,
				Role:      role,
				CompanyID: id.CompanyID,
				TeamIDs:   id.TeamIDs,
			})
			return next(c)
		}
	}
}

// SubjectFrom retrieves the caller stored by EchoAuth
func SubjectFrom(c echo.Context) (entities.Subject, bool) {
	subject, ok := c.Get(subjectKey).(entities.Subject)
	return subject, ok
}

// WithSubject stores subject as the authenticated caller
func WithSubject(c echo.Context, subject entities.Subject) {
	c.Set(subjectKey, subject)
}

func extractToken(r *http.Request) string {
	// Expected format: "Bearer <token>"
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Try cookie as fallback
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(c echo.Context, appErr apperrors.AppError) error {
	return c.JSON(appErr.HTTPCode, map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
