package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

type cachedBoard struct {
	StudentID string `json:"student_id"`
	Titles    []string
}

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "board:s1", cachedBoard{StudentID: "s1", Titles: []string{"A"}}, time.Minute))

	var got cachedBoard
	require.NoError(t, repo.Get(ctx, "board:s1", &got))
	assert.Equal(t, "s1", got.StudentID)

	require.NoError(t, repo.Delete(ctx, "board:s1"))
	assert.ErrorIs(t, repo.Get(ctx, "board:s1", &got), appErrors.ErrCacheMiss)
}

func TestMemoryCacheRepositoryExpires(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got string
	assert.ErrorIs(t, repo.Get(ctx, "k", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var got string
	assert.ErrorIs(t, repo.Get(ctx, "k", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Close())
}
