package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chapacerto/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protectedRouter(secret string) (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var captured uuid.UUID
	router.GET("/protected", Auth(secret), func(c *gin.Context) {
		captured = UserID(c)
		c.JSON(http.StatusOK, gin.H{"role": Role(c), "is_admin": IsAdmin(c)})
	})
	return router, &captured
}

func TestAuthRoundTrip(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: string(models.RoleWorker), IsAdmin: true}
	token, err := GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	router, captured := protectedRouter(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, *captured)
	assert.Contains(t, w.Body.String(), `"role":"worker"`)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	router, _ := protectedRouter(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: string(models.RoleContractor)}
	token, err := GenerateToken(user, "other-secret", time.Hour)
	require.NoError(t, err)

	router, _ := protectedRouter(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type lookupFunc func(id uuid.UUID) (*models.User, error)

func (f lookupFunc) GetByID(id uuid.UUID) (*models.User, error) { return f(id) }

func TestRequireActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user := &models.User{ID: uuid.New(), Role: string(models.RoleContractor)}
	token, err := GenerateToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	lookup := lookupFunc(func(id uuid.UUID) (*models.User, error) {
		cp := *user
		return &cp, nil
	})
	router := gin.New()
	router.GET("/protected", Auth(testSecret), RequireActive(lookup), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	user.IsBlocked = true
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "blocking takes effect on the next request")
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: string(models.RoleContractor)}
	token, err := GenerateToken(user, testSecret, -time.Minute)
	require.NoError(t, err)

	router, _ := protectedRouter(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
