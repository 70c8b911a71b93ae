package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ChatCore/logger"
	"ChatCore/module/chat/notify"
	"ChatCore/tools/errs"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// 用户目录走 JSON over gRPC（对端是网关聚合服务，约定 json 子类型）
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                             { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const getUserInfoMethod = "/userdirectory.UserDirectory/GetUserInfo"

type Config struct {
	Target              string        // gRPC service address
	DialTimeout         time.Duration // connection timeout
	HealthCheckInterval time.Duration // health check interval
}

// Manager 用户目录客户端：断线自动重连 + 健康检查
type Manager struct {
	cfg       Config
	mu        sync.RWMutex
	conn      *grpc.ClientConn
	healthy   bool
	stopCh    chan struct{}
	startOnce sync.Once
}

func NewManager(cfg Config) *Manager {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

func (m *Manager) run() {
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if err := m.connect(); err != nil {
			logger.Warn("user directory connect failed", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}

		go m.healthLoop()
		return
	}
}

func (m *Manager) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, m.cfg.Target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.healthy = true
	m.mu.Unlock()

	logger.Info("user directory connected", zap.String("target", m.cfg.Target))
	return nil
}

func (m *Manager) healthLoop() {
	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	health := grpc_health_v1.NewHealthClient(conn)

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "userdirectory.UserDirectory"})
			cancel()
			if err != nil || resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				logger.Warn("user directory health check failed", zap.Error(err))
				m.reconnect()
				return
			}
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = nil
	m.healthy = false
	m.mu.Unlock()

	go m.run()
}

func (m *Manager) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = nil
	m.mu.Unlock()
}

type getUserInfoReq struct {
	UserID string `json:"user_id"`
}

// GetUserInfo 实现 notify.ProfileClient
func (m *Manager) GetUserInfo(ctx context.Context, userID string) (*notify.UserInfo, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return nil, errs.ErrInternal.WrapMsg("user directory not connected")
	}

	var resp notify.UserInfo
	err := conn.Invoke(ctx, getUserInfoMethod, &getUserInfoReq{UserID: userID}, &resp,
		grpc.CallContentSubtype(jsonCodec{}.Name()))
	if err != nil {
		return nil, errs.WrapMsg(err, "get user info failed", "userID", userID)
	}
	return &resp, nil
}
