package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/repository"
)

func TestSanitize(t *testing.T) {
	svc := NewChatService(repository.NewMemoryChatRepo(), 50)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain text", "hello there", "hello there", nil},
		{"trims", "  hi  ", "hi", nil},
		{"strips tags", "<b>bold</b> move", "bold move", nil},
		{"script only", "<script>alert('x')</script>", "", ErrEmptyMessage},
		{"whitespace only", "   ", "", ErrEmptyMessage},
		{"empty tags", "<div><span></span></div>", "", ErrEmptyMessage},
		{"too long", strings.Repeat("a", 501), "", ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Sanitize(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostAndHistory(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(repository.NewMemoryChatRepo(), 3)

	for i := 0; i < 5; i++ {
		_, err := svc.Post(ctx, "r1", "u1", "ana", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	_, err := svc.Post(ctx, "r1", "u1", "ana", "<script></script>")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	history, err := svc.History(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "msg 2", history[0].Message)
	assert.Equal(t, "msg 4", history[2].Message)
	assert.Equal(t, "ana", history[0].Username)

	empty, err := svc.History(ctx, "r2")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
