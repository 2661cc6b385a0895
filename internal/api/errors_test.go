package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"storytopia-server/internal/models"
)

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"story not found", models.ErrStoryNotFound, http.StatusNotFound},
		{"user not found", models.ErrUserNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load story: %w", models.ErrStoryNotFound), http.StatusNotFound},
		{"private story", models.ErrStoryPrivate, http.StatusForbidden},
		{"forbidden", models.ErrForbidden, http.StatusForbidden},
		{"unauthorized", models.ErrUnauthorized, http.StatusUnauthorized},
		{"username taken", models.ErrUserAlreadyExists, http.StatusConflict},
		{"not following", models.ErrNotFollowing, http.StatusBadRequest},
		{"bad request", models.ErrBadRequest, http.StatusBadRequest},
		{"unknown error", errors.New("firestore exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

			handleServiceError(c, tc.err, zap.NewNop())

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandleServiceError_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	handleServiceError(c, errors.New("connection string leaked"), zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection string")
}
