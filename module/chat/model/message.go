package model

// MessageModel 一条消息的持久化主干。
// Seq 为会话内自增序列：UNIQUE(chat_id, seq)，分配后不可变、不复用。
// 并发下落库顺序不保证与分配顺序一致，消费端一律按 Seq 排序。
type MessageModel struct {
	ServerMsgID string `bson:"server_msg_id"` // 服务端分配的全局消息ID
	ChatID      string `bson:"chat_id"`       // 会话ID
	Seq         int64  `bson:"seq"`           // 会话内序列号
	SenderID    string `bson:"sender_id"`     // 发送者ID
	Content     string `bson:"content"`       // 文本内容
	CreateTime  int64  `bson:"create_time"`   // 创建时间(Unix ms)
	UpdateTime  int64  `bson:"update_time,omitempty"`
	DeleteTime  int64  `bson:"delete_time,omitempty"`
}

const (
	MessageFieldServerMsgID = "server_msg_id"
	MessageFieldChatID      = "chat_id"
	MessageFieldSeq         = "seq"
	MessageFieldSenderID    = "sender_id"
	MessageFieldContent     = "content"
	MessageFieldCreateTime  = "create_time"
	MessageFieldDeleteTime  = "delete_time"
)

func (m *MessageModel) GetTableName() string {
	return "message"
}
