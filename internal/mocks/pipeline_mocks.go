package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storytopia-server/internal/models"
	"storytopia-server/internal/service"
)

// MockStoryContentGenerator is a mock type for the StoryContentGenerator type
type MockStoryContentGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, prompt, disability
func (_m *MockStoryContentGenerator) Generate(ctx context.Context, prompt string, disability string) (*models.StoryContent, error) {
	ret := _m.Called(ctx, prompt, disability)

	var r0 *models.StoryContent
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *models.StoryContent); ok {
		r0 = rf(ctx, prompt, disability)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.StoryContent)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, prompt, disability)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStoryContentGenerator creates a new instance of MockStoryContentGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryContentGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockStoryContentGenerator {
	m := &MockStoryContentGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.StoryContentGenerator = (*MockStoryContentGenerator)(nil)

// MockSceneRenderer is a mock type for the SceneRenderer type
type MockSceneRenderer struct {
	mock.Mock
}

// Render provides a mock function with given fields: ctx, storyID, scenes, style, disability
func (_m *MockSceneRenderer) Render(ctx context.Context, storyID string, scenes []string, style string, disability string) ([]string, error) {
	ret := _m.Called(ctx, storyID, scenes, style, disability)

	var r0 []string
	if rf, ok := ret.Get(0).(func(context.Context, string, []string, string, string) []string); ok {
		r0 = rf(ctx, storyID, scenes, style, disability)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, []string, string, string) error); ok {
		r1 = rf(ctx, storyID, scenes, style, disability)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSceneRenderer creates a new instance of MockSceneRenderer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSceneRenderer(t interface {
	mock.TestingT
	Helper()
}) *MockSceneRenderer {
	m := &MockSceneRenderer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.SceneRenderer = (*MockSceneRenderer)(nil)

// MockAudioSynthesizer is a mock type for the AudioSynthesizer type
type MockAudioSynthesizer struct {
	mock.Mock
}

// Synthesize provides a mock function with given fields: ctx, pages
func (_m *MockAudioSynthesizer) Synthesize(ctx context.Context, pages []string) ([]string, error) {
	ret := _m.Called(ctx, pages)

	var r0 []string
	if rf, ok := ret.Get(0).(func(context.Context, []string) []string); ok {
		r0 = rf(ctx, pages)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []string) error); ok {
		r1 = rf(ctx, pages)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockAudioSynthesizer creates a new instance of MockAudioSynthesizer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAudioSynthesizer(t interface {
	mock.TestingT
	Helper()
}) *MockAudioSynthesizer {
	m := &MockAudioSynthesizer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.AudioSynthesizer = (*MockAudioSynthesizer)(nil)

// MockPromptAugmenter is a mock type for the PromptAugmenter type
type MockPromptAugmenter struct {
	mock.Mock
}

// Augment provides a mock function with given fields: ctx, prompt, scope
func (_m *MockPromptAugmenter) Augment(ctx context.Context, prompt string, scope string) string {
	ret := _m.Called(ctx, prompt, scope)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, prompt, scope)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	return r0
}

// IndexStory provides a mock function with given fields: ctx, authorID, storyID, text
func (_m *MockPromptAugmenter) IndexStory(ctx context.Context, authorID string, storyID string, text string) error {
	ret := _m.Called(ctx, authorID, storyID, text)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) error); ok {
		r0 = rf(ctx, authorID, storyID, text)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Recommend provides a mock function with given fields: ctx, userID
func (_m *MockPromptAugmenter) Recommend(ctx context.Context, userID string) (string, bool, error) {
	ret := _m.Called(ctx, userID)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, userID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 bool
	if rf, ok := ret.Get(1).(func(context.Context, string) bool); ok {
		r1 = rf(ctx, userID)
	} else {
		if ret.Get(1) != nil {
			r1 = ret.Get(1).(bool)
		}
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string) error); ok {
		r2 = rf(ctx, userID)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// NewMockPromptAugmenter creates a new instance of MockPromptAugmenter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockPromptAugmenter(t interface {
	mock.TestingT
	Helper()
}) *MockPromptAugmenter {
	m := &MockPromptAugmenter{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.PromptAugmenter = (*MockPromptAugmenter)(nil)
