package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/service"
)

// MockSpeechSynthesizer is a mock type for the SpeechSynthesizer type
type MockSpeechSynthesizer struct {
	mock.Mock
}

// Synthesize provides a mock function with given fields: ctx, text
func (_m *MockSpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ret := _m.Called(ctx, text)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string) []byte); ok {
		r0 = rf(ctx, text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, text)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSpeechSynthesizer creates a new instance of MockSpeechSynthesizer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSpeechSynthesizer(t interface {
	mock.TestingT
	Helper()
}) *MockSpeechSynthesizer {
	m := &MockSpeechSynthesizer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.SpeechSynthesizer = (*MockSpeechSynthesizer)(nil)
