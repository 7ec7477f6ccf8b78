package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portal-service/internal/apperr"
	"portal-service/internal/mocks"
	"portal-service/internal/models"
	"portal-service/internal/repositories"
)

type broadcast struct {
	event string
	data  any
}

type recordingBroadcaster struct {
	events []broadcast
}

func (b *recordingBroadcaster) BroadcastGlobal(event string, data any) {
	b.events = append(b.events, broadcast{event: event, data: data})
}

func strPtr(s string) *string { return &s }

var (
	physics  = strPtr("Physics")
	governor = models.User{ID: 5, Username: "gov", Role: models.RoleDepartmentGovernor, Department: physics}
	faculty  = models.User{ID: 6, Username: "dean", Role: models.RoleFacultyGovernor}
	student  = models.User{ID: 7, Username: "stu", Role: models.RoleStudent, Department: physics}
)

type fixture struct {
	svc      *Service
	repo     *mocks.NotificationRepositoryMock
	users    *mocks.UserRepositoryMock
	push     *mocks.NotifierMock
	activity *mocks.ActivityLoggerMock
	bc       *recordingBroadcaster
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(mocks.NotificationRepositoryMock),
		users:    new(mocks.UserRepositoryMock),
		push:     new(mocks.NotifierMock),
		activity: new(mocks.ActivityLoggerMock),
		bc:       &recordingBroadcaster{},
	}
	f.svc = NewService(f.repo, f.users, f.bc, f.push, f.activity)
	return f
}

func TestPostTargetsGovernorDepartment(t *testing.T) {
	f := newFixture()
	stored := models.Notification{ID: 1, Type: models.NotificationUrgent, Content: "Lab closed", PostedByID: 5, TargetDepartment: physics}

	f.repo.On("CreateNotification", mock.Anything, models.NewNotification{
		Type: models.NotificationUrgent, Content: "Lab closed", PostedByID: 5, TargetDepartment: physics,
	}).Return(stored, nil).Once()
	f.activity.On("LogActivity", mock.Anything, mock.Anything, "notification_posted", "notification", 1).Once()
	f.users.On("ListUsersForTarget", mock.Anything, physics).Return([]models.User{governor, student}, nil).Once()
	f.push.On("Notify", mock.Anything, 7, "New urgent notification", "Lab closed").Return(errors.New("push down")).Once()

	n, err := f.svc.Post(context.Background(), governor, PostRequest{Type: models.NotificationUrgent, Content: " Lab closed "})
	require.NoError(t, err)
	assert.Equal(t, stored, n)

	require.Len(t, f.bc.events, 1)
	assert.Equal(t, models.EventNewNotification, f.bc.events[0].event)
	f.repo.AssertExpectations(t)
	f.push.AssertExpectations(t)
	f.activity.AssertExpectations(t)
}

func TestPostGenerally(t *testing.T) {
	for _, tc := range []struct {
		name string
		user models.User
		req  PostRequest
	}{
		{"governor posting generally", governor, PostRequest{Content: "hi", PostGenerally: true}},
		{"faculty governor", faculty, PostRequest{Content: "hi"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n models.NewNotification) bool {
				return n.TargetDepartment == nil && n.Type == models.NotificationRegular
			})).Return(models.Notification{ID: 2, Type: models.NotificationRegular, Content: "hi"}, nil).Once()
			f.activity.On("LogActivity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.users.On("ListUsersForTarget", mock.Anything, (*string)(nil)).Return(nil, nil).Once()

			_, err := f.svc.Post(context.Background(), tc.user, tc.req)
			require.NoError(t, err)
			f.repo.AssertExpectations(t)
			f.users.AssertExpectations(t)
		})
	}
}

func TestPostRejections(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Post(context.Background(), student, PostRequest{Content: "hi"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Post(context.Background(), governor, PostRequest{Content: "   "})
	assert.Equal(t, "Content required", apperr.PublicMessage(err))

	_, err = f.svc.Post(context.Background(), governor, PostRequest{Type: "loud", Content: "hi"})
	assert.Equal(t, "Invalid notification type", apperr.PublicMessage(err))

	f.repo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	assert.Empty(t, f.bc.events)
}

func TestReactBroadcastsUpdate(t *testing.T) {
	f := newFixture()
	updated := models.Notification{ID: 3}
	updated.Reactions.Toggle("🎉", 7)
	f.repo.On("ToggleReaction", mock.Anything, 3, "🎉", 7).Return(updated, nil).Once()

	n, err := f.svc.React(context.Background(), student, 3, "🎉")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, n.Reactions.Users("🎉"))
	require.Len(t, f.bc.events, 1)
	assert.Equal(t, models.EventNotificationUpdated, f.bc.events[0].event)
}

func TestReactUnknownNotification(t *testing.T) {
	f := newFixture()
	f.repo.On("ToggleReaction", mock.Anything, 3, "🎉", 7).Return(nil, repositories.ErrNotificationNotFound).Once()

	_, err := f.svc.React(context.Background(), student, 3, "🎉")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.bc.events)
}

func TestMarkReadDoesNotBroadcast(t *testing.T) {
	f := newFixture()
	f.repo.On("MarkRead", mock.Anything, 4, 7).Return(nil).Twice()

	require.NoError(t, f.svc.MarkRead(context.Background(), student, 4))
	require.NoError(t, f.svc.MarkRead(context.Background(), student, 4))
	assert.Empty(t, f.bc.events)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	f.repo.On("GetNotification", mock.Anything, 8).Return(models.Notification{ID: 8, PostedByID: 99}, nil)

	err := f.svc.Delete(context.Background(), governor, 8)
	assert.Equal(t, "Cannot delete others notifications", apperr.PublicMessage(err))

	f.repo.On("DeleteNotification", mock.Anything, 8).Return(nil).Once()
	f.activity.On("LogActivity", mock.Anything, mock.Anything, "notification_deleted", "notification", 8).Once()

	require.NoError(t, f.svc.Delete(context.Background(), faculty, 8))
	require.Len(t, f.bc.events, 1)
	assert.Equal(t, models.NotificationDeletedPayload{ID: 8}, f.bc.events[0].data)
	f.activity.AssertExpectations(t)
}

func TestListFiltersByDepartment(t *testing.T) {
	f := newFixture()
	f.repo.On("ListForDepartment", mock.Anything, physics).Return([]models.Notification{
		{ID: 3, TargetDepartment: physics},
		{ID: 2, TargetDepartment: strPtr("Chemistry")},
		{ID: 1},
	}, nil).Once()

	list, err := f.svc.List(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].ID)
	assert.Equal(t, 1, list[1].ID)
}
