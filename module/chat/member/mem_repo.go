package member

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"
	"sync"
	"time"
)

// MemRepository 内存版成员仓库（测试/本地联调）
type MemRepository struct {
	mu   sync.RWMutex
	rows map[string]*chatmodel.Membership // chat|member
}

func NewMemRepository() *MemRepository {
	return &MemRepository{rows: make(map[string]*chatmodel.Membership)}
}

func memberKey(chatID, memberID string) string { return chatID + "|" + memberID }

func (r *MemRepository) Upsert(ctx context.Context, m *chatmodel.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memberKey(m.ChatID, m.MemberID)
	if old, ok := r.rows[k]; ok {
		old.Role = m.Role
		return nil
	}
	cp := *m
	if cp.JoinedAt.IsZero() {
		cp.JoinedAt = time.Now()
	}
	cp.LastReadSeq = 0
	r.rows[k] = &cp
	return nil
}

func (r *MemRepository) Remove(ctx context.Context, chatID, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, memberKey(chatID, memberID))
	return nil
}

func (r *MemRepository) Get(ctx context.Context, chatID, memberID string) (*chatmodel.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.rows[memberKey(chatID, memberID)]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
}

func (r *MemRepository) ListByChat(ctx context.Context, chatID string) ([]chatmodel.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []chatmodel.Membership
	for _, m := range r.rows {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *MemRepository) ListByMember(ctx context.Context, memberID string) ([]chatmodel.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []chatmodel.Membership
	for _, m := range r.rows {
		if m.MemberID == memberID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *MemRepository) AdvanceReadSeq(ctx context.Context, chatID, memberID string, seq int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[memberKey(chatID, memberID)]
	if !ok {
		return 0, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
	}
	if seq > m.LastReadSeq {
		m.LastReadSeq = seq
	}
	return m.LastReadSeq, nil
}
