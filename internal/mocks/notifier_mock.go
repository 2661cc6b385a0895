package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/notification"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// NotifyStoryReady provides a mock function with given fields: ctx, userID, title, prompt
func (_m *MockNotifier) NotifyStoryReady(ctx context.Context, userID string, title string, prompt string) error {
	ret := _m.Called(ctx, userID, title, prompt)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) error); ok {
		r0 = rf(ctx, userID, title, prompt)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NotifyStoryFailed provides a mock function with given fields: ctx, userID, prompt, errorDetail
func (_m *MockNotifier) NotifyStoryFailed(ctx context.Context, userID string, prompt string, errorDetail string) error {
	ret := _m.Called(ctx, userID, prompt, errorDetail)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) error); ok {
		r0 = rf(ctx, userID, prompt, errorDetail)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ notification.Notifier = (*MockNotifier)(nil)
