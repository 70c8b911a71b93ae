package pg

import (
	"context"
	"sync"
	"time"

	"ChatCore/global"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pgOnce sync.Once
	pgMgr  *PGManager
)

type PGManager struct {
	pool *pgxpool.Pool
}

// InitPG 初始化 Postgres 连接池（单例）
func InitPG(c global.PostgresConfig) error {
	var initErr error
	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, c.DSN)
		if err != nil {
			initErr = err
			return
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			initErr = err
			return
		}
		pgMgr = &PGManager{pool: pool}
	})
	return initErr
}

// GetPool 获取连接池
func GetPool() *pgxpool.Pool {
	if pgMgr == nil {
		panic("Postgres not initialized, call InitPG first")
	}
	return pgMgr.pool
}

// ClosePG 关闭连接池
func ClosePG() {
	if pgMgr != nil && pgMgr.pool != nil {
		pgMgr.pool.Close()
	}
}
