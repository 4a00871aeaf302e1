package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/pkg/jwt"
)

func serve(t *testing.T, tokens TokenValidator, header string) (*httptest.ResponseRecorder, *entities.Subject) {
	t.Helper()
	e := echo.New()
	var seen *entities.Subject
	e.GET("/me", func(c echo.Context) error {
		s, ok := SubjectFrom(c)
		require.True(t, ok)
		seen = &s
		return c.NoContent(http.StatusNoContent)
	}, EchoAuth(tokens))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestEchoAuth(t *testing.T) {
	manager := jwt.NewManager("secret", time.Minute, "qa-review")
	team := uuid.New()
	userID := uuid.New()
	token, err := manager.GenerateAccessToken(jwt.Identity{UserID: userID, Role: "reviewer", TeamIDs: []uuid.UUID{team}})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		rec, subject := serve(t, manager, "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, subject)
		assert.Equal(t, userID, subject.UserID)
		assert.Equal(t, entities.RoleReviewer, subject.Role)
		assert.True(t, subject.IsTeamMember(team))
	})

	t.Run("missing token", func(t *testing.T) {
		rec, subject := serve(t, manager, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, subject)
		assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
	})

	t.Run("bad signature", func(t *testing.T) {
		other := jwt.NewManager("other", time.Minute, "qa-review")
		rec, _ := serve(t, other, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "AUTH_INVALID_TOKEN")
	})

	t.Run("unknown role", func(t *testing.T) {
		odd, err := manager.GenerateAccessToken(jwt.Identity{UserID: uuid.New(), Role: "superuser"})
		require.NoError(t, err)
		rec, _ := serve(t, manager, "Bearer "+odd)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
