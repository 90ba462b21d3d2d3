package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
	"CoinMentor/pkg/cache"
)

func msg(role models.Role, content string) models.Message {
	return models.Message{Role: role, Content: content, Timestamp: time.Now()}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleUser, "q1"), msg(models.RoleAssistant, "a1")))
	require.NoError(t, s.Append(ctx, "gemini", msg(models.RoleUser, "q1")))

	claude, err := s.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Len(t, claude, 2)

	gemini, err := s.Get(ctx, "gemini")
	require.NoError(t, err)
	assert.Len(t, gemini, 1)

	require.NoError(t, s.Reset(ctx, "claude"))
	claude, err = s.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Empty(t, claude)

	gemini, err = s.Get(ctx, "gemini")
	require.NoError(t, err)
	assert.Len(t, gemini, 1)
}

func TestMemoryStoreResetAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleUser, "q")))
	require.NoError(t, s.Append(ctx, "grok", msg(models.RoleUser, "q")))
	require.NoError(t, s.ResetAll(ctx))

	for _, name := range []string{"claude", "grok"} {
		history, err := s.Get(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, history)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleUser, "original")))

	history, err := s.Get(ctx, "claude")
	require.NoError(t, err)
	history[0].Content = "mutated"

	again, err := s.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestCacheStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewCacheStore(mem, 0)

	history, err := s.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleUser, "q1")))
	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleAssistant, "a1")))

	history, err = s.Get(ctx, "claude")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "a1", history[1].Content)

	require.NoError(t, s.Reset(ctx, "claude"))
	history, err = s.Get(ctx, "claude")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCacheStoreResetAll(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewCacheStore(mem, 0)

	require.NoError(t, s.Append(ctx, "claude", msg(models.RoleUser, "q")))
	require.NoError(t, s.Append(ctx, "gemini", msg(models.RoleUser, "q")))
	require.NoError(t, s.ResetAll(ctx))

	for _, name := range []string{"claude", "gemini"} {
		history, err := s.Get(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, history)
	}
}
