package retrieval

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite vectors", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty vectors", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransientConnErr(t *testing.T) {
	assert.True(t, isTransientConnErr(timeoutErr{}))
	assert.True(t, isTransientConnErr(io.EOF))
	assert.True(t, isTransientConnErr(errors.New("dial tcp: connection refused")))
	assert.True(t, isTransientConnErr(errors.New("read: connection reset by peer")))

	assert.False(t, isTransientConnErr(errors.New("WRONGTYPE Operation against a key")))
	assert.False(t, isTransientConnErr(backoff.Permanent(io.EOF)))
}

func TestScopeKeys(t *testing.T) {
	assert.Equal(t, "vec:user:u1:ids", scopeSetKey("user:u1"))
	assert.Equal(t, "vec:ctx:s1:doc:art-0", docKey("ctx:s1", "art-0"))
}

func newRetryTestStore() *VectorStore {
	return NewVectorStore(nil, nil, 3, time.Millisecond, zap.NewNop())
}

func TestWithRetry_ExhaustsTransientAttempts(t *testing.T) {
	s := newRetryTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "add documents", func() error {
		calls++
		return timeoutErr{}
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_RecoversMidway(t *testing.T) {
	s := newRetryTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "add documents", func() error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentErrorStopsImmediately(t *testing.T) {
	s := newRetryTestStore()

	calls := 0
	err := s.withRetry(context.Background(), "query", func() error {
		calls++
		return errors.New("WRONGTYPE Operation against a key")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
