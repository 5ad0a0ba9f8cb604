package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labstation-backend/internal/clock"
	"labstation-backend/internal/model"
)

func TestJoinQueue(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s, _ := newTestStore(t, clock.NewFake(base))

	first, err := s.JoinQueue(ctx, actorFor(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, model.QueueWaiting, first.Status)
	assert.True(t, base.Equal(first.JoinedAt))

	preferred := int64(2)
	second, err := s.JoinQueue(ctx, actorFor(2), &preferred)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	require.NotNil(t, second.StationID)
	assert.Equal(t, preferred, *second.StationID)

	// One waiting entry per user.
	_, err = s.JoinQueue(ctx, actorFor(1), nil)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeAlreadyQueued))

	// A preferred station must exist.
	missing := int64(99)
	_, err = s.JoinQueue(ctx, actorFor(3), &missing)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeStationNotFound))
}

func TestLeaveQueue_Renumbers(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s, _ := newTestStore(t, clock.NewFake(base))

	// C, D, E join in that order: positions 1, 2, 3.
	for _, user := range []int64{1, 2, 3} {
		_, err := s.JoinQueue(ctx, actorFor(user), nil)
		require.NoError(t, err)
	}

	// D leaves: C keeps position 1, E moves up to 2.
	require.NoError(t, s.LeaveQueue(ctx, actorFor(2)))

	state, err := s.ListQueue(ctx, actorFor(3))
	require.NoError(t, err)
	require.Len(t, state.Entries, 2)
	assert.Equal(t, int64(1), state.Entries[0].UserID)
	assert.Equal(t, 1, state.Entries[0].Position)
	assert.Equal(t, int64(3), state.Entries[1].UserID)
	assert.Equal(t, 2, state.Entries[1].Position)

	require.NotNil(t, state.CallerPosition)
	assert.Equal(t, 2, state.CallerPosition.Position)
	assert.Equal(t, 2, state.CallerPosition.TotalInQueue)

	// A fresh join lands at the dense tail, not at a stale max.
	rejoined, err := s.JoinQueue(ctx, actorFor(2), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rejoined.Position)

	// Leaving without a waiting entry is a state error.
	require.NoError(t, s.LeaveQueue(ctx, actorFor(1)))
	err = s.LeaveQueue(ctx, actorFor(1))
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeNotQueued))
}

func TestQueuePositions_DenseAfterChurn(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s, db := newTestStore(t, clock.NewFake(base))

	for _, user := range []int64{1, 2, 3, 4, 5} {
		_, err := s.JoinQueue(ctx, actorFor(user), nil)
		require.NoError(t, err)
	}
	require.NoError(t, s.LeaveQueue(ctx, actorFor(2)))
	require.NoError(t, s.LeaveQueue(ctx, actorFor(5)))
	_, err := s.JoinQueue(ctx, actorFor(2), nil)
	require.NoError(t, err)

	var entries []model.QueueEntry
	require.NoError(t, db.Where("status = ?", model.QueueWaiting).Order("position").Find(&entries).Error)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position, "positions must be the dense sequence 1..N")
	}
	// Join order survives the churn: 1, 3, 4, then 2 again at the back.
	assert.Equal(t, []int64{1, 3, 4, 2}, []int64{entries[0].UserID, entries[1].UserID, entries[2].UserID, entries[3].UserID})
}

func TestJoinQueue_ConcurrentJoins(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s, db := newTestStore(t, clock.NewFake(base))

	var wg sync.WaitGroup
	for user := int64(1); user <= 5; user++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_, err := s.JoinQueue(ctx, actorFor(u), nil)
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	var positions []int
	require.NoError(t, db.Model(&model.QueueEntry{}).
		Where("status = ?", model.QueueWaiting).
		Order("position").
		Pluck("position", &positions).Error)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, positions, "concurrent joins must not share a position")
}
