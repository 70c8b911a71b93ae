package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ChatCore/module/chat/member"
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresence struct {
	online map[string]bool
	err    error
	calls  int
}

func (p *fakePresence) GetUsersStatus(ctx context.Context, userIDs []string) (map[string]bool, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		out[id] = p.online[id]
	}
	return out, nil
}

type fakeProfiles struct {
	failFor map[string]bool
}

func (p *fakeProfiles) GetUserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	if p.failFor[userID] {
		return nil, errs.ErrInternal.WrapMsg("directory down", "userID", userID)
	}
	return &UserInfo{UserID: userID, Name: "user-" + userID, Email: userID + "@example.com"}, nil
}

type captureSink struct {
	mu      sync.Mutex
	jobs    []Job
	failFor map[string]bool
}

func (s *captureSink) Emit(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[job.MemberID] {
		return errors.New("sink rejected")
	}
	s.jobs = append(s.jobs, *job)
	return nil
}

type fixture struct {
	repo     *member.MemRepository
	presence *fakePresence
	profiles *fakeProfiles
	sink     *captureSink
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := member.NewMemRepository()
	presence := &fakePresence{online: map[string]bool{}}
	profiles := &fakeProfiles{failFor: map[string]bool{}}
	sink := &captureSink{failFor: map[string]bool{}}
	return &fixture{
		repo:     repo,
		presence: presence,
		profiles: profiles,
		sink:     sink,
		d:        NewDispatcher(repo, presence, profiles, sink),
	}
}

func (f *fixture) addMember(t *testing.T, chatID, memberID string, cursor int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.repo.Upsert(ctx, &chatmodel.Membership{ChatID: chatID, MemberID: memberID}))
	if cursor > 0 {
		_, err := f.repo.AdvanceReadSeq(ctx, chatID, memberID, cursor)
		require.NoError(t, err)
	}
}

func (f *fixture) notified() []string {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	out := make([]string, 0, len(f.sink.jobs))
	for _, j := range f.sink.jobs {
		out = append(out, j.MemberID)
	}
	return out
}

func TestDispatchNotifiesOnlyOfflineUnread(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 8) // 没读到 9，离线 → 通知
	f.addMember(t, "c1", "B", 9) // 已读到 9 → 排除
	f.addMember(t, "c1", "C", 5) // 没读到，但在线 → 排除
	f.presence.online["C"] = true

	require.NoError(t, f.d.Dispatch(context.Background(), "c1", 9, "B"))

	require.Equal(t, []string{"A"}, f.notified())
	job := f.sink.jobs[0]
	assert.Equal(t, "c1", job.ChatID)
	assert.Equal(t, int64(9), job.MessageSeq)
	assert.Equal(t, "user-A", job.Name)
	assert.Equal(t, "A@example.com", job.Email)
	assert.NotEmpty(t, job.JobID)
	assert.NotZero(t, job.TriggeredAt)
}

func TestDispatchIsReadOnlyAndRepeatable(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 3)
	f.addMember(t, "c1", "B", 7)

	ctx := context.Background()
	require.NoError(t, f.d.Dispatch(ctx, "c1", 7, "B"))
	require.NoError(t, f.d.Dispatch(ctx, "c1", 7, "B"))

	// 重投只产生重复通知尝试，不改任何游标
	assert.Equal(t, []string{"A", "A"}, f.notified())
	a, err := f.repo.Get(ctx, "c1", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.LastReadSeq)
	b, err := f.repo.Get(ctx, "c1", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.LastReadSeq)
}

func TestDispatchSkipsMemberOnProfileFailure(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 0)
	f.addMember(t, "c1", "B", 0)
	f.profiles.failFor["A"] = true

	require.NoError(t, f.d.Dispatch(context.Background(), "c1", 1, "X"))
	assert.Equal(t, []string{"B"}, f.notified())
}

func TestDispatchSkipsMemberOnSinkFailure(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 0)
	f.addMember(t, "c1", "B", 0)
	f.sink.failFor["A"] = true

	require.NoError(t, f.d.Dispatch(context.Background(), "c1", 1, "X"))
	assert.Equal(t, []string{"B"}, f.notified())
}

func TestDispatchAbortsRoundOnPresenceFailure(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 0)
	f.presence.err = errors.New("presence down")

	err := f.d.Dispatch(context.Background(), "c1", 1, "X")
	require.Error(t, err)
	assert.Empty(t, f.notified())
}

func TestDispatchSkipsPresenceWhenNoCandidates(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "c1", "A", 5)

	require.NoError(t, f.d.Dispatch(context.Background(), "c1", 5, "A"))
	assert.Zero(t, f.presence.calls)
	assert.Empty(t, f.notified())
}

func TestDispatchRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	err := f.d.Dispatch(context.Background(), "", 1, "A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrArgs))

	err = f.d.Dispatch(context.Background(), "c1", 0, "A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrArgs))
}
