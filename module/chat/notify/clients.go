package notify

import (
	chatmodel "ChatCore/module/chat/model"
	"context"
)

// UserInfo 用户资料快照（GetUserInfo）
type UserInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// 在线状态取值
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceClient 在线状态服务（GetUsersStatus，批量）
type PresenceClient interface {
	// GetUsersStatus 返回 userID -> 是否在线
	GetUsersStatus(ctx context.Context, userIDs []string) (map[string]bool, error)
}

// ProfileClient 用户目录服务（GetUserInfo，逐个）
type ProfileClient interface {
	GetUserInfo(ctx context.Context, userID string) (*UserInfo, error)
}

// MembershipSource 成员清单来源（member.Repository 满足）
type MembershipSource interface {
	ListByChat(ctx context.Context, chatID string) ([]chatmodel.Membership, error)
}

// Job 一条待投递的通知任务（本核心不落库，产出即交给外部投递通道）
type Job struct {
	JobID       string `json:"job_id"`
	MemberID    string `json:"member_id"`
	ChatID      string `json:"chat_id"`
	MessageSeq  int64  `json:"message_seq"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	TriggeredAt int64  `json:"triggered_at"` // Unix ms
}

// JobSink 通知任务出口（生产 NATS，测试内存）
type JobSink interface {
	Emit(ctx context.Context, job *Job) error
}
