package model

import "time"

// 成员角色
const (
	RoleMember int32 = 0
	RoleAdmin  int32 = 1
	RoleOwner  int32 = 2
)

// Membership 会话成员关系（用户视角）。
// LastReadSeq 是该成员的已读游标（高水位），只升不降，初始为 0。
// 主键 (chat_id, member_id)。
type Membership struct {
	ChatID      string    `bson:"chat_id"`
	MemberID    string    `bson:"member_id"`
	Role        int32     `bson:"role"`
	LastReadSeq int64     `bson:"last_read_seq"`
	JoinedAt    time.Time `bson:"joined_at"`
}

const (
	MembershipFieldChatID      = "chat_id"
	MembershipFieldMemberID    = "member_id"
	MembershipFieldRole        = "role"
	MembershipFieldLastReadSeq = "last_read_seq"
	MembershipFieldJoinedAt    = "joined_at"
)

func (m *Membership) GetTableName() string {
	return "chat_membership"
}
