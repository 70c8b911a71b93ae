package notify

import (
	"context"
	"encoding/json"

	"ChatCore/global"
	"ChatCore/service/natsx"
	"ChatCore/tools/errs"
)

// NatsPresenceClient 在线状态走 NATS request/reply（presence 服务订阅同一 subject）
type NatsPresenceClient struct {
	C *natsx.NatsxClient
}

type usersStatusReq struct {
	UserIDs []string `json:"user_ids"`
}

type userStatus struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type usersStatusResp struct {
	Statuses []userStatus `json:"statuses"`
}

func (p *NatsPresenceClient) GetUsersStatus(ctx context.Context, userIDs []string) (map[string]bool, error) {
	data, err := json.Marshal(usersStatusReq{UserIDs: userIDs})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	raw, err := p.C.Request(ctx, global.SubjectPresenceStatus, data)
	if err != nil {
		return nil, errs.WrapMsg(err, "presence request failed")
	}
	var resp usersStatusResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errs.WrapMsg(err, "bad presence reply")
	}
	online := make(map[string]bool, len(resp.Statuses))
	for _, s := range resp.Statuses {
		online[s.UserID] = s.Status == StatusOnline
	}
	return online, nil
}

// NatsJobSink 通知任务出口：Core 发布，投递 worker 订阅消费
type NatsJobSink struct {
	C       *natsx.NatsxClient
	Channel string // email / push ...
}

func (s *NatsJobSink) Emit(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errs.Wrap(err)
	}
	return s.C.Publish(global.SubjectNotifyJob(s.Channel), data)
}
