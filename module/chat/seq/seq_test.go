package seq

import (
	"ChatCore/tools/errs"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDB struct {
	mu  sync.Mutex
	max map[string]int64
	err error
}

func newMemDB() *memDB { return &memDB{max: make(map[string]int64)} }

func (d *memDB) MaxSeq(ctx context.Context, chatID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return 0, d.err
	}
	return d.max[chatID], nil
}

type flakyStore struct {
	*MemStore
	getErr  error
	incrErr error
}

func (s *flakyStore) Get(ctx context.Context, key string) (int64, bool, error) {
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	return s.MemStore.Get(ctx, key)
}

func (s *flakyStore) Incr(ctx context.Context, key string) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	return s.MemStore.Incr(ctx, key)
}

func newTestAllocator(db MaxSeqQuerier) (*Allocator, *MemStore) {
	store := NewMemStore()
	a := NewAllocator(store, store, db)
	a.PollWait = 5 * time.Millisecond
	a.BootstrapWait = 2 * time.Second
	return a, store
}

func TestAllocateNextBootstrapsFromDurableMax(t *testing.T) {
	db := newMemDB()
	db.max["c1"] = 7
	a, _ := newTestAllocator(db)

	v, err := a.AllocateNext(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestAllocateNextEmptyChatStartsAtOne(t *testing.T) {
	a, _ := newTestAllocator(newMemDB())

	v, err := a.AllocateNext(context.Background(), "c-empty")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestGetCurrentValueDoesNotIncrement(t *testing.T) {
	a, _ := newTestAllocator(newMemDB())
	ctx := context.Background()

	v, err := a.GetCurrentValue(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = a.AllocateNext(ctx, "c1")
	require.NoError(t, err)

	v, err = a.GetCurrentValue(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = a.GetCurrentValue(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "read-only call must not advance the counter")
}

func TestConcurrentAllocateDistinctContiguous(t *testing.T) {
	db := newMemDB()
	db.max["hot"] = 100
	a, _ := newTestAllocator(db)

	const n = 64
	var wg sync.WaitGroup
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := a.AllocateNext(context.Background(), "hot")
			require.NoError(t, err)
			out[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(101+i), out[i], "values must form a contiguous run with no duplicates")
	}
}

func TestRacingBootstrapOnEmptyChat(t *testing.T) {
	a, store := newTestAllocator(newMemDB())

	var wg sync.WaitGroup
	out := make([]int64, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := a.AllocateNext(context.Background(), "race")
			require.NoError(t, err)
			out[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	assert.Equal(t, []int64{1, 2}, out)

	cur, ok, err := store.Get(context.Background(), "chat:race:lastMessageId")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), cur, "loser must not overwrite the bootstrap value")
}

func TestBootstrapTimeoutWhenLockStuck(t *testing.T) {
	a, store := newTestAllocator(newMemDB())
	a.PollWait = 10 * time.Millisecond
	a.BootstrapWait = 100 * time.Millisecond

	// 别的持有者占着锁且一直不写计数器
	got, err := store.AcquireLock(context.Background(), "chat:stuck:lastMessageId:initLock", "other", time.Minute)
	require.NoError(t, err)
	require.True(t, got)

	_, err = a.AllocateNext(context.Background(), "stuck")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBootstrapTimeout), "got: %v", err)
}

func TestAllocatorUnavailableOnStoreFailure(t *testing.T) {
	db := newMemDB()
	fs := &flakyStore{MemStore: NewMemStore(), getErr: errors.New("conn refused")}
	a := NewAllocator(fs, fs.MemStore, db)

	_, err := a.AllocateNext(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAllocatorUnavailable), "got: %v", err)
}

func TestBootstrapReleasesLockOnDurableFailure(t *testing.T) {
	db := newMemDB()
	db.err = errors.New("durable store down")
	a, _ := newTestAllocator(db)
	ctx := context.Background()

	_, err := a.AllocateNext(ctx, "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAllocatorUnavailable))

	// 锁必须已释放：恢复后下一次初始化立即成功，不等 TTL
	db.mu.Lock()
	db.err = nil
	db.max["c1"] = 3
	db.mu.Unlock()

	v, err := a.AllocateNext(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestReconcileAndNextOnlyRaises(t *testing.T) {
	a, store := newTestAllocator(newMemDB())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "chat:c1:lastMessageId", 3))
	v, err := a.ReconcileAndNext(ctx, "c1", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)

	// floor 低于当前值时不回退
	v, err = a.ReconcileAndNext(ctx, "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)
}

func TestAllocateNextEmptyChatID(t *testing.T) {
	a, _ := newTestAllocator(newMemDB())
	_, err := a.AllocateNext(context.Background(), "")
	assert.True(t, errors.Is(err, errs.ErrArgs))
}
