package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func strPtr(s string) *string { return &s }

var (
	admin   = models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	student = models.User{ID: 7, Username: "stu", Role: models.RoleStudent, Department: strPtr("Physics")}
)

func setupRoomRouter(handler *RoomHandler, user models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetUser(c, user)
		c.Next()
	})
	r.GET("/api/me", handler.Me)
	r.GET("/api/departments", handler.ListDepartments)
	r.GET("/api/rooms", handler.ListRooms)
	r.POST("/api/rooms", handler.CreateRoom)
	r.DELETE("/api/rooms/:room_id", handler.DeleteRoom)
	r.GET("/api/messages/:room_id", handler.GetMessages)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestMeReturnsIdentity(t *testing.T) {
	router := setupRoomRouter(NewRoomHandler(nil, nil, nil, nil), student)

	rec := serve(router, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "stu", user["username"])
	assert.Equal(t, "Physics", user["department_name"])
}

func TestMeWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/me", NewRoomHandler(nil, nil, nil, nil).Me)

	rec := serve(r, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDepartments(t *testing.T) {
	router := setupRoomRouter(NewRoomHandler(nil, nil, nil, []string{"Physics", "Math"}), student)

	rec := serve(router, http.MethodGet, "/api/departments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Physics", "Math"}, decodeBody(t, rec)["departments"])
}

func TestListRooms(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(rooms, nil, nil, nil), student)

	rooms.On("ListRoomsVisibleTo", mock.Anything, student).Return([]models.Room{{ID: 1, Name: "General", Kind: models.RoomGeneral}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["rooms"], 1)
	rooms.AssertExpectations(t)
}

func TestListRoomsRepoError(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(rooms, nil, nil, nil), student)

	rooms.On("ListRoomsVisibleTo", mock.Anything, student).Return(nil, assert.AnError).Once()

	rec := serve(router, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", decodeBody(t, rec)["error"])
}

func TestCreateRoom(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	activity := new(mocks.ActivityLoggerMock)
	router := setupRoomRouter(NewRoomHandler(rooms, nil, activity, nil), admin)

	creator := 1
	rooms.On("CreateRoom", mock.Anything, models.Room{Name: "Robotics", Kind: models.RoomCustom, CreatedByID: &creator}).
		Return(models.Room{ID: 9, Name: "Robotics", Kind: models.RoomCustom}, nil).Once()
	activity.On("LogActivity", mock.Anything, mock.Anything, "room_created", "room", 9).Once()

	rec := serve(router, http.MethodPost, "/api/rooms", `{"name":" Robotics "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeBody(t, rec)["room"].(map[string]any)
	assert.Equal(t, float64(9), room["id"])
	rooms.AssertExpectations(t)
	activity.AssertExpectations(t)
}

func TestCreateRoomConflict(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(rooms, nil, nil, nil), admin)

	rooms.On("CreateRoom", mock.Anything, mock.Anything).Return(nil, repositories.ErrRoomExists).Once()

	rec := serve(router, http.MethodPost, "/api/rooms", `{"name":"Robotics","type":"Custom"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRoomValidation(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)

	cases := []struct {
		name   string
		user   models.User
		body   string
		status int
		msg    string
	}{
		{"not admin", student, `{"name":"x"}`, http.StatusForbidden, "Insufficient permissions"},
		{"missing name", admin, `{"name":"  "}`, http.StatusBadRequest, "Room name required"},
		{"general kind", admin, `{"name":"x","type":"General"}`, http.StatusBadRequest, "Invalid room type"},
		{"department without name", admin, `{"name":"x","type":"Department"}`, http.StatusBadRequest, "Department required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRoomRouter(NewRoomHandler(rooms, nil, nil, nil), tc.user)
			rec := serve(router, http.MethodPost, "/api/rooms", tc.body)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeBody(t, rec)["error"])
		})
	}
	rooms.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
}

func TestDeleteRoom(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	activity := new(mocks.ActivityLoggerMock)
	router := setupRoomRouter(NewRoomHandler(rooms, nil, activity, nil), admin)

	rooms.On("DeleteRoom", mock.Anything, 9).Return(nil).Once()
	rooms.On("DeleteRoom", mock.Anything, 1).Return(repositories.ErrSystemRoom).Once()
	rooms.On("DeleteRoom", mock.Anything, 404).Return(repositories.ErrRoomNotFound).Once()
	activity.On("LogActivity", mock.Anything, mock.Anything, "room_deleted", "room", 9).Once()

	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/api/rooms/9", "").Code)

	rec := serve(router, http.MethodDelete, "/api/rooms/1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete system rooms", decodeBody(t, rec)["error"])

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/api/rooms/404", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodDelete, "/api/rooms/abc", "").Code)

	rooms.AssertExpectations(t)
	activity.AssertExpectations(t)
}

func TestGetMessages(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(rooms, messages, nil, nil), student)

	rooms.On("GetRoom", mock.Anything, 2).Return(models.Room{ID: 2, Kind: models.RoomDepartment, Department: strPtr("Physics")}, nil)
	messages.On("ListRecentMessages", mock.Anything, 2, 100, 0).Return(nil, nil).Once()
	messages.On("ListRecentMessages", mock.Anything, 2, 500, 20).Return([]models.Message{{ID: 1, RoomID: 2}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/messages/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["messages"])

	rec = serve(router, http.MethodGet, "/api/messages/2?limit=9000&offset=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["messages"], 1)

	messages.AssertExpectations(t)
}

func TestGetMessagesAccessDenied(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	router := setupRoomRouter(NewRoomHandler(rooms, messages, nil, nil), student)

	rooms.On("GetRoom", mock.Anything, 3).Return(models.Room{ID: 3, Kind: models.RoomDepartment, Department: strPtr("Chemistry")}, nil).Once()
	rooms.On("GetRoom", mock.Anything, 4).Return(nil, repositories.ErrRoomNotFound).Once()

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/messages/3", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/messages/4", "").Code)
	messages.AssertNotCalled(t, "ListRecentMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
