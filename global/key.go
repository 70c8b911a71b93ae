package global

// Redis 键规划（会话发号器）：
//
//	chat:{chatId}:lastMessageId           当前已分配的最大 seq（INCR 取号）
//	chat:{chatId}:lastMessageId:initLock  初始化互斥锁（SETNX + TTL）
//
// 计数器永远 >= 持久层真实最大 seq；真相源是消息表，计数器只是可重建缓存。
func ChatSeqKey(chatID string) string {
	return "chat:" + chatID + ":lastMessageId"
}

func ChatSeqInitLockKey(chatID string) string {
	return ChatSeqKey(chatID) + ":initLock"
}

// TopicKeyChat Kafka 分区键：同一会话的事件进同一分区，保持会话内顺序
func TopicKeyChat(chatID string) string {
	return "chat:" + chatID
}

// SubjectNotifyJob 通知任务的 NATS subject（外部投递通道消费）
func SubjectNotifyJob(channel string) string {
	return "notify.job." + channel
}

// SubjectPresenceStatus 在线状态查询的 request/reply subject
const SubjectPresenceStatus = "presence.status"
