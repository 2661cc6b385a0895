package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/storage"
)

// MockObjectStore is a mock type for the ObjectStore type
type MockObjectStore struct {
	mock.Mock
}

// UploadPublic provides a mock function with given fields: ctx, path, data, contentType
func (_m *MockObjectStore) UploadPublic(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ret := _m.Called(ctx, path, data, contentType)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte, string) string); ok {
		r0 = rf(ctx, path, data, contentType)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, []byte, string) error); ok {
		r1 = rf(ctx, path, data, contentType)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockObjectStore creates a new instance of MockObjectStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockObjectStore(t interface {
	mock.TestingT
	Helper()
}) *MockObjectStore {
	m := &MockObjectStore{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ storage.ObjectStore = (*MockObjectStore)(nil)
