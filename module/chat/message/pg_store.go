package message

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"
	stderrors "errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PGStore Postgres 版消息存储。
//
// 建表：
//
//	CREATE TABLE IF NOT EXISTS message (
//	    server_msg_id TEXT   PRIMARY KEY,
//	    chat_id       TEXT   NOT NULL,
//	    seq           BIGINT NOT NULL,
//	    sender_id     TEXT   NOT NULL,
//	    content       TEXT   NOT NULL,
//	    create_time   BIGINT NOT NULL,
//	    update_time   BIGINT,
//	    delete_time   BIGINT,
//	    UNIQUE (chat_id, seq)
//	);
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, m *chatmodel.MessageModel) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message (server_msg_id, chat_id, seq, sender_id, content, create_time)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ServerMsgID, m.ChatID, m.Seq, m.SenderID, m.Content, m.CreateTime)
	return errs.Wrap(err)
}

func (s *PGStore) MaxSeq(ctx context.Context, chatID string) (int64, error) {
	var max int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM message WHERE chat_id = $1`, chatID,
	).Scan(&max)
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return max, nil
}

func (s *PGStore) ListRange(ctx context.Context, chatID string, fromSeq, toSeq, limit int64) ([]chatmodel.MessageModel, error) {
	q := `SELECT server_msg_id, chat_id, seq, sender_id, content, create_time
	      FROM message WHERE chat_id = $1 AND seq > $2`
	args := []any{chatID, fromSeq}
	if toSeq > 0 {
		q += ` AND seq <= $3`
		args = append(args, toSeq)
	}
	q += ` ORDER BY seq ASC`
	if limit > 0 {
		q += ` LIMIT ` + strconv.FormatInt(limit, 10)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer rows.Close()
	var out []chatmodel.MessageModel
	for rows.Next() {
		var m chatmodel.MessageModel
		if err := rows.Scan(&m.ServerMsgID, &m.ChatID, &m.Seq, &m.SenderID, &m.Content, &m.CreateTime); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, m)
	}
	return out, errs.Wrap(rows.Err())
}

func (s *PGStore) IsDupSeqErr(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
