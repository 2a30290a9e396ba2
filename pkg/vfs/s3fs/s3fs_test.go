package s3fs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMapping(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		key    string
		dirKey string
	}{
		{"", "/", "", ""},
		{"", "/a.txt", "a.txt", "a.txt/"},
		{"", "/d/x.txt", "d/x.txt", "d/x.txt/"},
		{"data", "/", "data", "data/"},
		{"data", "/a.txt", "data/a.txt", "data/a.txt/"},
		{"data", "/d/x.txt", "data/d/x.txt", "data/d/x.txt/"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+tt.path, func(t *testing.T) {
			b := &Fs{bucket: "bucket", prefix: tt.prefix}
			assert.Equal(t, tt.key, b.key(tt.path))
			assert.Equal(t, tt.dirKey, b.dirKey(tt.path))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(&s3types.NotFound{}))
	assert.False(t, isRetryable(&s3types.NoSuchKey{}))
	assert.True(t, isRetryable(errors.New("connection reset")))

	// Wrapped not-found conditions stay non-retryable.
	wrapped := fmt.Errorf("head object: %w", &s3types.NotFound{})
	assert.False(t, isRetryable(wrapped))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&s3types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("attempt 3: %w", &s3types.NoSuchKey{})))
	assert.False(t, isNotFound(errors.New("throttled")))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}
