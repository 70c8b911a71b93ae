package member

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository Postgres 版成员仓库。
//
// 建表：
//
//	CREATE TABLE IF NOT EXISTS chat_membership (
//	    chat_id        TEXT        NOT NULL,
//	    member_id      TEXT        NOT NULL,
//	    role           INT         NOT NULL DEFAULT 0,
//	    last_read_seq  BIGINT      NOT NULL DEFAULT 0,
//	    joined_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (chat_id, member_id)
//	);
//	CREATE INDEX IF NOT EXISTS idx_membership_member ON chat_membership (member_id);
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Upsert(ctx context.Context, m *chatmodel.Membership) error {
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_membership (chat_id, member_id, role, last_read_seq, joined_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (chat_id, member_id) DO UPDATE SET role = EXCLUDED.role`,
		m.ChatID, m.MemberID, m.Role, joined)
	return errs.Wrap(err)
}

func (r *PGRepository) Remove(ctx context.Context, chatID, memberID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM chat_membership WHERE chat_id = $1 AND member_id = $2`,
		chatID, memberID)
	return errs.Wrap(err)
}

func (r *PGRepository) Get(ctx context.Context, chatID, memberID string) (*chatmodel.Membership, error) {
	var out chatmodel.Membership
	err := r.pool.QueryRow(ctx, `
		SELECT chat_id, member_id, role, last_read_seq, joined_at
		FROM chat_membership WHERE chat_id = $1 AND member_id = $2`,
		chatID, memberID,
	).Scan(&out.ChatID, &out.MemberID, &out.Role, &out.LastReadSeq, &out.JoinedAt)
	if err == pgx.ErrNoRows {
		return nil, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (r *PGRepository) ListByChat(ctx context.Context, chatID string) ([]chatmodel.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT chat_id, member_id, role, last_read_seq, joined_at
		FROM chat_membership WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return scanMemberships(rows)
}

func (r *PGRepository) ListByMember(ctx context.Context, memberID string) ([]chatmodel.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT chat_id, member_id, role, last_read_seq, joined_at
		FROM chat_membership WHERE member_id = $1`, memberID)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return scanMemberships(rows)
}

// AdvanceReadSeq GREATEST 在行锁内完成单调推进
func (r *PGRepository) AdvanceReadSeq(ctx context.Context, chatID, memberID string, seq int64) (int64, error) {
	var cursor int64
	err := r.pool.QueryRow(ctx, `
		UPDATE chat_membership
		SET last_read_seq = GREATEST(last_read_seq, $3)
		WHERE chat_id = $1 AND member_id = $2
		RETURNING last_read_seq`,
		chatID, memberID, seq,
	).Scan(&cursor)
	if err == pgx.ErrNoRows {
		return 0, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
	}
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return cursor, nil
}

func scanMemberships(rows pgx.Rows) ([]chatmodel.Membership, error) {
	defer rows.Close()
	var out []chatmodel.Membership
	for rows.Next() {
		var m chatmodel.Membership
		if err := rows.Scan(&m.ChatID, &m.MemberID, &m.Role, &m.LastReadSeq, &m.JoinedAt); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, m)
	}
	return out, errs.Wrap(rows.Err())
}
