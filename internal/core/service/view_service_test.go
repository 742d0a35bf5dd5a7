package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

func newViewScenario(queueSize int) (*ViewService, *mockCacheRepo, *mockCatalog) {
	cache := newMockCacheRepo()
	catalog := newMockCatalog()
	catalog.addAssembly("S1", 7, "19.99")
	catalog.addAssembly("S2", 3, "")
	return NewViewService(cache, catalog, nil, queueSize, time.Minute), cache, catalog
}

func TestRecordView_Success(t *testing.T) {
	svc, cache, _ := newViewScenario(10)
	defer svc.Close()

	require.NoError(t, svc.RecordView(context.Background(), "user-1", "S1"))
	assert.Equal(t, int64(1), cache.viewsOf("S1"))

	event := <-svc.GetViewQueue()
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "S1", event.AssemblyID)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.ViewedAt.IsZero())
}

func TestRecordView_Duplicate(t *testing.T) {
	svc, cache, _ := newViewScenario(10)
	defer svc.Close()
	ctx := context.Background()

	require.NoError(t, svc.RecordView(ctx, "user-1", "S1"))
	err := svc.RecordView(ctx, "user-1", "S1")
	assert.ErrorIs(t, err, ErrDuplicateView)
	assert.Equal(t, int64(1), cache.viewsOf("S1"))

	require.NoError(t, svc.RecordView(ctx, "user-2", "S1"))
	assert.Equal(t, int64(2), cache.viewsOf("S1"))
}

func TestRecordView_InvalidInput(t *testing.T) {
	svc, _, _ := newViewScenario(1)
	defer svc.Close()

	assert.ErrorIs(t, svc.RecordView(context.Background(), "", "S1"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.RecordView(context.Background(), "user-1", ""), domain.ErrInvalidInput)
}

func TestRecordView_IncrementFailure(t *testing.T) {
	svc, cache, _ := newViewScenario(1)
	defer svc.Close()
	cache.failIncrement = true

	err := svc.RecordView(context.Background(), "user-1", "S1")
	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, svc.GetViewQueue())
	assert.False(t, cache.hasKey("view:user-1:S1"))
}

func TestRecordView_RollsBackWhenQueueBlocked(t *testing.T) {
	svc, cache, _ := newViewScenario(1)
	defer svc.Close()

	require.NoError(t, svc.RecordView(context.Background(), "user-1", "S1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.RecordView(ctx, "user-2", "S1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), cache.viewsOf("S1"), "blocked view is rolled back")
	assert.False(t, cache.hasKey("view:user-2:S1"))

	// once the queue has room the same viewer is counted
	<-svc.GetViewQueue()
	require.NoError(t, svc.RecordView(context.Background(), "user-2", "S1"))
	assert.Equal(t, int64(2), cache.viewsOf("S1"))
}

func TestRecordView_ConcurrentUsers(t *testing.T) {
	const users = 200
	svc, cache, _ := newViewScenario(users)
	defer svc.Close()

	var (
		wg      sync.WaitGroup
		counted atomic.Int32
		dupes   atomic.Int32
	)
	for i := 0; i < users; i++ {
		wg.Add(2)
		for range 2 {
			go func(id int) {
				defer wg.Done()
				err := svc.RecordView(context.Background(), fmt.Sprintf("user-%d", id), "S1")
				switch {
				case err == nil:
					counted.Add(1)
				case errors.Is(err, ErrDuplicateView):
					dupes.Add(1)
				}
			}(i)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(users), counted.Load())
	assert.Equal(t, int32(users), dupes.Load())
	assert.Equal(t, int64(users), cache.viewsOf("S1"))
	assert.Len(t, svc.GetViewQueue(), users)
}

func TestProcessViews_Persists(t *testing.T) {
	svc, cache, _ := newViewScenario(10)
	repo := &mockViewRepo{}
	ctx := context.Background()

	require.NoError(t, svc.RecordView(ctx, "user-1", "S1"))
	require.NoError(t, svc.RecordView(ctx, "user-2", "S2"))
	svc.Close()

	svc.ProcessViews(1, repo)

	assert.Len(t, repo.saved, 2)
	assert.Equal(t, int64(1), cache.viewsOf("S1"))
	assert.Equal(t, int64(1), cache.viewsOf("S2"))
}

func TestProcessViews_RollsBackOnFailure(t *testing.T) {
	svc, cache, _ := newViewScenario(10)
	repo := &mockViewRepo{fail: true}
	ctx := context.Background()

	require.NoError(t, svc.RecordView(ctx, "user-1", "S1"))
	require.NoError(t, svc.RecordView(ctx, "user-2", "S1"))
	require.Equal(t, int64(2), cache.viewsOf("S1"))
	svc.Close()

	svc.ProcessViews(1, repo)

	assert.Empty(t, repo.saved)
	assert.Equal(t, int64(0), cache.viewsOf("S1"))
	assert.False(t, cache.hasKey("view:user-1:S1"))
	assert.False(t, cache.hasKey("view:user-2:S1"))
}

func TestPopular(t *testing.T) {
	svc, cache, _ := newViewScenario(10)
	defer svc.Close()
	cache.views["S2"] = 5
	cache.views["S1"] = 9
	cache.views["retired"] = 20

	top, err := svc.Popular(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, top, 2, "assemblies without a summary are skipped")
	assert.Equal(t, "S1", top[0].Summary.AssemblyID)
	assert.Equal(t, int64(9), top[0].Views)
	assert.Equal(t, "S2", top[1].Summary.AssemblyID)

	_, err = svc.Popular(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
