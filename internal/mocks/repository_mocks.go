package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/models"
	"storytopia-server/internal/repository"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) Create(ctx context.Context, story *models.Story) (string, error) {
	ret := _m.Called(ctx, story)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, *models.Story) string); ok {
		r0 = rf(ctx, story)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *models.Story) error); ok {
		r1 = rf(ctx, story)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Story
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.Story); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Story)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Update provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) Update(ctx context.Context, story *models.Story) error {
	ret := _m.Called(ctx, story)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *models.Story) error); ok {
		r0 = rf(ctx, story)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListRecentPublic provides a mock function with given fields: ctx, offset, limit
func (_m *MockStoryRepository) ListRecentPublic(ctx context.Context, offset int, limit int) ([]*models.Story, error) {
	ret := _m.Called(ctx, offset, limit)

	var r0 []*models.Story
	if rf, ok := ret.Get(0).(func(context.Context, int, int) []*models.Story); ok {
		r0 = rf(ctx, offset, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]*models.Story)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int, int) error); ok {
		r1 = rf(ctx, offset, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)

// MockUserRepository is a mock type for the UserRepository type
type MockUserRepository struct {
	mock.Mock
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.User
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.User); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.User)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetByUsername provides a mock function with given fields: ctx, username
func (_m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ret := _m.Called(ctx, username)

	var r0 *models.User
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.User); ok {
		r0 = rf(ctx, username)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.User)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, username)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Update provides a mock function with given fields: ctx, user
func (_m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	ret := _m.Called(ctx, user)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *models.User) error); ok {
		r0 = rf(ctx, user)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// UsernameExists provides a mock function with given fields: ctx, username
func (_m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	ret := _m.Called(ctx, username)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = rf(ctx, username)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(bool)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, username)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockUserRepository creates a new instance of MockUserRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockUserRepository(t interface {
	mock.TestingT
	Helper()
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.UserRepository = (*MockUserRepository)(nil)
