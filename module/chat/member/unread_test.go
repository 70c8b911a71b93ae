package member

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSeqReader 固定水位 + 调用计数
type fakeSeqReader struct {
	mu      sync.Mutex
	current map[string]int64
	calls   map[string]int
}

func newFakeSeqReader(current map[string]int64) *fakeSeqReader {
	return &fakeSeqReader{current: current, calls: make(map[string]int)}
}

func (f *fakeSeqReader) GetCurrentValue(ctx context.Context, chatID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[chatID]++
	return f.current[chatID], nil
}

func TestUnreadCount(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")
	_, err := repo.AdvanceReadSeq(ctx, "c1", "alice", 4)
	require.NoError(t, err)

	counter := NewCounter(newFakeSeqReader(map[string]int64{"c1": 10}), repo)
	n, err := counter.UnreadCount(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestUnreadCountClampsToZero(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")

	// cursor == current
	_, err := repo.AdvanceReadSeq(ctx, "c1", "alice", 10)
	require.NoError(t, err)
	counter := NewCounter(newFakeSeqReader(map[string]int64{"c1": 10}), repo)
	n, err := counter.UnreadCount(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// cursor 瞬时超过计数器（快存刚重建）：压到 0，不得为负
	_, err = repo.AdvanceReadSeq(ctx, "c1", "alice", 12)
	require.NoError(t, err)
	n, err = counter.UnreadCount(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUnreadCountsBatchesOneReadPerChat(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")
	seedMembership(t, repo, "c2", "alice")
	seedMembership(t, repo, "c2", "bob")

	_, err := repo.AdvanceReadSeq(ctx, "c1", "alice", 2)
	require.NoError(t, err)

	reader := newFakeSeqReader(map[string]int64{"c1": 5, "c2": 3})
	counter := NewCounter(reader, repo)

	out, err := counter.UnreadCounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 3, "c2": 3}, out)
	assert.Equal(t, 1, reader.calls["c1"])
	assert.Equal(t, 1, reader.calls["c2"])
}

func TestMembershipRemove(t *testing.T) {
	repo := NewMemRepository()
	ctx := context.Background()
	seedMembership(t, repo, "c1", "alice")
	require.NoError(t, repo.Remove(ctx, "c1", "alice"))
	_, err := repo.Get(ctx, "c1", "alice")
	assert.Error(t, err)

	ms, err := repo.ListByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, ms)
}
