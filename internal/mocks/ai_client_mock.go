package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/service"
)

// MockTextGenerator is a mock type for the TextGenerator type
type MockTextGenerator struct {
	mock.Mock
}

// GenerateJSON provides a mock function with given fields: ctx, systemPrompt, userPrompt
func (_m *MockTextGenerator) GenerateJSON(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	ret := _m.Called(ctx, systemPrompt, userPrompt)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, systemPrompt, userPrompt)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, systemPrompt, userPrompt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Complete provides a mock function with given fields: ctx, systemPrompt, userPrompt
func (_m *MockTextGenerator) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	ret := _m.Called(ctx, systemPrompt, userPrompt)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, systemPrompt, userPrompt)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, systemPrompt, userPrompt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTextGenerator creates a new instance of MockTextGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTextGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockTextGenerator {
	m := &MockTextGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.TextGenerator = (*MockTextGenerator)(nil)

// MockImageGenerator is a mock type for the ImageGenerator type
type MockImageGenerator struct {
	mock.Mock
}

// GenerateImage provides a mock function with given fields: ctx, prompt
func (_m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, prompt)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, prompt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.ImageGenerator = (*MockImageGenerator)(nil)
