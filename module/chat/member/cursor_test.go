package member

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMembership(t *testing.T, repo Repository, chatID, memberID string) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &chatmodel.Membership{
		ChatID:   chatID,
		MemberID: memberID,
		Role:     chatmodel.RoleMember,
	}))
}

func TestMarkReadMonotonic(t *testing.T) {
	repo := NewMemRepository()
	tracker := NewTracker(repo)
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")

	require.NoError(t, tracker.MarkRead(ctx, "c1", "alice", 5))
	// 乱序 ack：晚到的低游标不得回退
	require.NoError(t, tracker.MarkRead(ctx, "c1", "alice", 3))

	m, err := repo.Get(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.LastReadSeq)
}

func TestMarkReadConcurrentKeepsHighWater(t *testing.T) {
	repo := NewMemRepository()
	tracker := NewTracker(repo)
	ctx := context.Background()
	seedMembership(t, repo, "c1", "bob")

	var wg sync.WaitGroup
	for s := int64(1); s <= 100; s++ {
		wg.Add(1)
		go func(s int64) {
			defer wg.Done()
			_ = tracker.MarkRead(ctx, "c1", "bob", s)
		}(s)
	}
	wg.Wait()

	m, err := repo.Get(ctx, "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.LastReadSeq)
}

func TestMarkReadUnknownMembership(t *testing.T) {
	tracker := NewTracker(NewMemRepository())
	err := tracker.MarkRead(context.Background(), "c1", "ghost", 1)
	assert.True(t, errors.Is(err, errs.ErrRecordNotFound), "got: %v", err)
}

func TestMarkReadRejectsNegativeSeq(t *testing.T) {
	tracker := NewTracker(NewMemRepository())
	err := tracker.MarkRead(context.Background(), "c1", "alice", -1)
	assert.True(t, errors.Is(err, errs.ErrArgs), "got: %v", err)
}

func TestUpsertKeepsExistingCursor(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")

	_, err := repo.AdvanceReadSeq(ctx, "c1", "alice", 7)
	require.NoError(t, err)

	// 重复入会（如角色变更）不得清零游标
	require.NoError(t, repo.Upsert(ctx, &chatmodel.Membership{
		ChatID: "c1", MemberID: "alice", Role: chatmodel.RoleAdmin,
	}))
	m, err := repo.Get(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.LastReadSeq)
	assert.Equal(t, chatmodel.RoleAdmin, m.Role)
}
