package message

import (
	chatmodel "ChatCore/module/chat/model"
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrUniqueSeq = errors.New("unique (chat_id, seq) violated")

// MemStore 内存版消息存储：与生产实现相同的唯一约束语义（测试/本地联调）
type MemStore struct {
	mu    sync.RWMutex
	bySeq map[string]map[int64]*chatmodel.MessageModel // chatID -> seq -> msg
}

func NewMemStore() *MemStore {
	return &MemStore{bySeq: make(map[string]map[int64]*chatmodel.MessageModel)}
}

func (s *MemStore) Insert(ctx context.Context, m *chatmodel.MessageModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySeq[m.ChatID]; !ok {
		s.bySeq[m.ChatID] = make(map[int64]*chatmodel.MessageModel)
	}
	if _, ok := s.bySeq[m.ChatID][m.Seq]; ok {
		return ErrUniqueSeq
	}
	cp := *m
	s.bySeq[m.ChatID][m.Seq] = &cp
	return nil
}

func (s *MemStore) MaxSeq(ctx context.Context, chatID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for seq := range s.bySeq[chatID] {
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

func (s *MemStore) ListRange(ctx context.Context, chatID string, fromSeq, toSeq, limit int64) ([]chatmodel.MessageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chatmodel.MessageModel
	for seq, m := range s.bySeq[chatID] {
		if seq <= fromSeq {
			continue
		}
		if toSeq > 0 && seq > toSeq {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) IsDupSeqErr(err error) bool { return errors.Is(err, ErrUniqueSeq) }
