package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portal-service/internal/middleware"
	"portal-service/internal/mocks"
	"portal-service/internal/models"
	"portal-service/internal/repositories"
)

func setupUserRouter(handler *UserHandler, user models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetUser(c, user)
		c.Next()
	})
	r.GET("/api/users/:username", handler.GetProfile)
	return r
}

func TestGetProfile(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users), student)

	users.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 8, Username: "bob", Role: models.RoleStudent}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/users/bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decodeBody(t, rec)["user"].(map[string]any)["username"])
	users.AssertExpectations(t)
}

func TestGetProfileStudentCannotSeeStaff(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users), student)

	users.On("GetUserByUsername", mock.Anything, "root").Return(admin, nil).Once()

	rec := serve(router, http.MethodGet, "/api/users/root", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", decodeBody(t, rec)["error"])
}

func TestGetProfileUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router := setupUserRouter(NewUserHandler(users), admin)

	users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound).Once()

	rec := serve(router, http.MethodGet, "/api/users/ghost", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["error"])
}
